// Package event は order.events トピックに流すイベントの形を定義する。
package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrderEvents = "order.events"

	TypeOrderPlaced        = "OrderPlaced"
	TypeOrderStatusChanged = "OrderStatusChanged"
	TypeShipmentRegistered = "ShipmentRegistered"

	Version = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID      int64  `json:"order_id"`
	ItemType     string `json:"item_type"`
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int    `json:"quantity"`
	TotalAmount  string `json:"total_amount"`
	Wilaya       string `json:"wilaya"`
	// 売上が付く人。再販リンク経由なら再販者
	SellerID     *int64 `json:"seller_id,omitempty"`
	ResellLinkID *int64 `json:"resell_link_id,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID  int64  `json:"order_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	ActorID  int64  `json:"actor_id"`
	SellerID *int64 `json:"seller_id,omitempty"`
	Shipment string `json:"shipment,omitempty"`
}

type ShipmentRegisteredPayload struct {
	OrderID        int64  `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
	Attempts       int    `json:"attempts"`
	SellerID       *int64 `json:"seller_id,omitempty"`
}

// New は payload を包んだ Envelope を作る。correlation は注文ID
func New(eventType, producer string, orderID int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  Version,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       b,
	}, nil
}

// 同じ注文のイベントは同じパーティションへ
func (e Envelope) PartitionKey() []byte {
	return []byte(e.CorrelationID)
}

func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}
