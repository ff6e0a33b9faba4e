package model

import "strings"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// モバイル版が保存していた表記ゆれ（アラビア語・旧英語）を正規の値に寄せる
var statusAliases = map[string]OrderStatus{
	"pending":      OrderStatusPending,
	"processing":   OrderStatusPending,
	"قيد المعالجة": OrderStatusPending,
	"confirmed":    OrderStatusConfirmed,
	"تم التأكيد":   OrderStatusConfirmed,
	"shipped":      OrderStatusShipped,
	"تم الشحن":     OrderStatusShipped,
	"delivered":    OrderStatusDelivered,
	"تم التوصيل":   OrderStatusDelivered,
	"cancelled":    OrderStatusCancelled,
	"canceled":     OrderStatusCancelled,
	"ملغي":         OrderStatusCancelled,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	key := strings.TrimSpace(s)
	if st, ok := statusAliases[key]; ok {
		return st, true
	}
	st, ok := statusAliases[strings.ToLower(key)]
	return st, ok
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}
