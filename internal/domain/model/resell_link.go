package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 再販リンク。product_id と offer_id はどちらか一方だけ
type ResellLink struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug          string           `gorm:"type:varchar(32);not null;uniqueIndex" json:"slug"`
	ProductID     *int64           `gorm:"index;check:chk_resell_links_item,(product_id IS NULL) <> (offer_id IS NULL)" json:"product_id,omitempty"`
	OfferID       *int64           `gorm:"index" json:"offer_id,omitempty"`
	UserID        int64            `gorm:"not null;index" json:"user_id"`
	ResellerPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"reseller_price,omitempty"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (l ResellLink) ItemRef() (ItemType, int64) {
	if l.ProductID != nil {
		return ItemTypeProduct, *l.ProductID
	}
	if l.OfferID != nil {
		return ItemTypeOffer, *l.OfferID
	}
	return "", 0
}
