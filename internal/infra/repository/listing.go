package repository

import (
	"strings"

	"gorm.io/gorm"

	repo "taziri/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return page, limit
}

// 検索語・カテゴリ・価格帯の絞り込み。titleCol は商品なら name、オファーなら title
func applyListingFilter(tx *gorm.DB, q repo.ListingQuery, titleCol string) *gorm.DB {
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where(titleCol+" ILIKE ?", "%"+s+"%")
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	//割引後の価格で比較する
	effective := "CASE WHEN discount_price > 0 AND discount_price < price THEN discount_price ELSE price END"
	if q.MinPrice != nil {
		tx = tx.Where(effective+" >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where(effective+" <= ?", *q.MaxPrice)
	}
	return tx
}

func applyListingSort(tx *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "price_asc":
		return tx.Order("price asc").Order("id asc")
	case "price_desc":
		return tx.Order("price desc").Order("id desc")
	default:
		return tx.Order("created_at desc").Order("id desc")
	}
}
