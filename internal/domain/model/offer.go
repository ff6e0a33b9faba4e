package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 期間限定のオファー。商品と同じく注文・再販の対象
type Offer struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID      *int64           `gorm:"index" json:"seller_id,omitempty"`
	Title         string           `gorm:"type:varchar(255);not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"`
	ImageURL      string           `gorm:"type:text" json:"image_url"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_price,omitempty"`
	IsActive      bool             `gorm:"not null;default:false" json:"is_active"`
	EndsAt        *time.Time       `json:"ends_at,omitempty"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (o Offer) EffectivePrice() decimal.Decimal {
	return effectivePrice(o.Price, o.DiscountPrice)
}

// 公開中かつ期限切れでない
func (o Offer) IsAvailable(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	return o.EndsAt == nil || now.Before(*o.EndsAt)
}
