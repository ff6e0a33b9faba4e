package model

import "time"

type ShipmentJobState string

const (
	ShipmentJobQueued    ShipmentJobState = "queued"
	ShipmentJobDone      ShipmentJobState = "done"
	ShipmentJobFailed    ShipmentJobState = "failed"
	ShipmentJobCancelled ShipmentJobState = "cancelled"
)

// 配送会社への登録待ち（outbox）。ステータス確定と同じTxで積む
type ShipmentJob struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64            `gorm:"not null;uniqueIndex" json:"order_id"`
	State          ShipmentJobState `gorm:"type:varchar(20);not null;index" json:"state"`
	Attempts       int              `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt  time.Time        `gorm:"not null;index" json:"next_attempt_at"`
	LastError      string           `gorm:"type:text" json:"last_error"`
	TrackingNumber *string          `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
