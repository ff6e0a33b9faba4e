package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeOffer   ItemType = "offer"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeProduct || t == ItemTypeOffer
}

type DeliveryType string

const (
	DeliveryHome     DeliveryType = "home"
	DeliveryStopDesk DeliveryType = "stopDesk"
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryHome || d == DeliveryStopDesk
}

// 注文。total_amount = subtotal + shipping_cost を常に満たす
type Order struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemType       ItemType         `gorm:"type:varchar(10);not null" json:"item_type"`
	ItemID         int64            `gorm:"not null;index" json:"item_id"`
	ItemName       string           `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity       int              `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingCost   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalAmount    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	CustomerName   string           `gorm:"type:varchar(255);not null" json:"customer_name"`
	PhoneNumber    string           `gorm:"type:varchar(30);not null" json:"phone_number"`
	Wilaya         string           `gorm:"type:varchar(100);not null" json:"wilaya"`
	WilayaCode     int              `gorm:"not null;default:0" json:"wilaya_code"`
	Commune        string           `gorm:"type:varchar(100);not null" json:"commune"`
	Address        string           `gorm:"type:varchar(255)" json:"address"`
	DeliveryType   DeliveryType     `gorm:"type:varchar(10);not null" json:"delivery_type"`
	Status         OrderStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	ResellerPrice  *decimal.Decimal `gorm:"type:numeric(12,2)" json:"reseller_price,omitempty"`
	ResellLinkID   *int64           `gorm:"index" json:"resell_link_id,omitempty"`
	SellerID       *int64           `gorm:"index" json:"seller_id,omitempty"`
	SellerName     *string          `gorm:"type:varchar(255)" json:"seller_name,omitempty"`
	TrackingNumber *string          `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	IdempotencyKey string           `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
