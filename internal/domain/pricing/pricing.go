// Package pricing は注文金額（小計・送料・合計）を計算する。
// 割引や再販価格の選択は呼び出し側で済ませておく。
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// 金額は小数2桁、0から遠い方へ丸める
const Scale = 2

var (
	ErrInvalidQuantity  = errors.New("quantity must be >= 1")
	ErrNegativePrice    = errors.New("unit price must be >= 0")
	ErrNegativeShipping = errors.New("shipping fee must be >= 0")
)

type Breakdown struct {
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// Calculate: subtotal = unitPrice × quantity, total = subtotal + shippingFee
func Calculate(unitPrice decimal.Decimal, quantity int, shippingFee decimal.Decimal) (Breakdown, error) {
	if quantity < 1 {
		return Breakdown{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return Breakdown{}, ErrNegativePrice
	}
	if shippingFee.IsNegative() {
		return Breakdown{}, ErrNegativeShipping
	}

	unit := Round(unitPrice)
	ship := Round(shippingFee)
	subtotal := Round(unit.Mul(decimal.NewFromInt(int64(quantity))))

	return Breakdown{
		UnitPrice:    unit,
		Quantity:     quantity,
		Subtotal:     subtotal,
		ShippingCost: ship,
		TotalAmount:  subtotal.Add(ship),
	}, nil
}

// decimal.Round は half away from zero
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}
