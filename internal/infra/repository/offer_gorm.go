package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

type OfferGormRepository struct {
	db *gorm.DB
}

func NewOfferGormRepository(db *gorm.DB) *OfferGormRepository {
	return &OfferGormRepository{db: db}
}

func (r *OfferGormRepository) ListPublic(ctx context.Context, q repo.ListingQuery, now time.Time) ([]model.Offer, int64, error) {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	//オファーにはカテゴリが無い
	q.Category = ""

	tx := r.db.WithContext(ctx).Model(&model.Offer{}).
		Where("is_active = ?", true).
		Where("ends_at IS NULL OR ends_at > ?", now)
	tx = applyListingFilter(tx, q, "title")

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Offer{}, 0, err
	}

	var offers []model.Offer
	offset := (q.Page - 1) * q.Limit
	if err := applyListingSort(tx, q.Sort).Offset(offset).Limit(q.Limit).Find(&offers).Error; err != nil {
		return []model.Offer{}, 0, err
	}
	return offers, total, nil
}

func (r *OfferGormRepository) FindByID(ctx context.Context, id int64) (model.Offer, error) {
	var o model.Offer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return model.Offer{}, translateError(err)
	}
	return o, nil
}

func (r *OfferGormRepository) Create(ctx context.Context, o model.Offer) (model.Offer, error) {
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return model.Offer{}, translateError(err)
	}
	return o, nil
}

func (r *OfferGormRepository) Update(ctx context.Context, o model.Offer) error {
	res := r.db.WithContext(ctx).Model(&model.Offer{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"title":          o.Title,
		"description":    o.Description,
		"image_url":      o.ImageURL,
		"price":          o.Price,
		"discount_price": o.DiscountPrice,
		"is_active":      o.IsActive,
		"ends_at":        o.EndsAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OfferGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Offer{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
