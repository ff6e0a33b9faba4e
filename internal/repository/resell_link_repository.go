package repository

import (
	"context"

	"taziri/internal/domain/model"
)

type ResellLinkRepository interface {
	//スラッグ重複は ErrConflict
	Create(ctx context.Context, link *model.ResellLink) error
	FindByID(ctx context.Context, id int64) (model.ResellLink, error)
	FindBySlug(ctx context.Context, slug string) (model.ResellLink, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByUser(ctx context.Context, userID int64, includeInactive bool) ([]model.ResellLink, error)
	//is_active=false にする。すでに false でもエラーにしない
	Deactivate(ctx context.Context, id int64) error
}
