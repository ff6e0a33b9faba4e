package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID      *int64           `gorm:"index" json:"seller_id,omitempty"`
	Name          string           `gorm:"type:varchar(255);not null" json:"name"`
	Description   string           `gorm:"type:text" json:"description"`
	Category      string           `gorm:"type:varchar(100);index" json:"category"`
	ImageURL      string           `gorm:"type:text" json:"image_url"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_price,omitempty"`
	IsActive      bool             `gorm:"not null;default:false" json:"is_active"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// 割引価格があり、定価より安いときだけ割引価格を使う
func (p Product) EffectivePrice() decimal.Decimal {
	return effectivePrice(p.Price, p.DiscountPrice)
}

func effectivePrice(price decimal.Decimal, discount *decimal.Decimal) decimal.Decimal {
	if discount != nil && discount.IsPositive() && discount.LessThan(price) {
		return *discount
	}
	return price
}
