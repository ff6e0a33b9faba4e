package repository

import (
	"context"
	"time"

	"taziri/internal/domain/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int, offset int) ([]model.Notification, error)
	//他人の通知は ErrNotFound
	MarkRead(ctx context.Context, id int64, userID int64, at time.Time) error
}
