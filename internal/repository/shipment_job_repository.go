package repository

import (
	"context"
	"time"

	"taziri/internal/domain/model"
)

type ShipmentJobRepository interface {
	//注文につき1件。既にあれば queued に戻す
	Enqueue(ctx context.Context, orderID int64, at time.Time) (model.ShipmentJob, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.ShipmentJob, error)

	//期限の来た queued を SKIP LOCKED で取り、lease 分だけ先送りして返す。
	//attempts はここで +1 される
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]model.ShipmentJob, error)

	MarkDone(ctx context.Context, jobID int64, tracking string) error
	MarkRetry(ctx context.Context, jobID int64, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, jobID int64, lastErr string) error
	//queued のものだけ cancelled にする。対象が無くてもエラーにしない
	CancelQueued(ctx context.Context, orderID int64) error

	CountByState(ctx context.Context, state model.ShipmentJobState) (int64, error)
}
