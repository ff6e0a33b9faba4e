package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

type notificationGormRepository struct {
	db *gorm.DB
}

func NewNotificationGormRepository(db *gorm.DB) repo.NotificationRepository {
	return &notificationGormRepository{db: db}
}

func (r *notificationGormRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationGormRepository) ListByUser(ctx context.Context, userID int64, limit int, offset int) ([]model.Notification, error) {
	_, limit = normalizePage(1, limit)
	if offset < 0 {
		offset = 0
	}
	var list []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// 既読の再実行は read_at を上書きしない
func (r *notificationGormRepository) MarkRead(ctx context.Context, id int64, userID int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
