package repository

import (
	"context"
	"time"

	"taziri/internal/domain/model"
)

// 監査ログの絞り込み条件。ゼロ値は条件なし
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	//新しい順。total は Limit/Offset を無視した件数
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, int64, error)
}
