package repository

import (
	"context"

	"gorm.io/gorm"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

type resellLinkGormRepository struct {
	db *gorm.DB
}

func NewResellLinkGormRepository(db *gorm.DB) repo.ResellLinkRepository {
	return &resellLinkGormRepository{db: db}
}

func (r *resellLinkGormRepository) Create(ctx context.Context, link *model.ResellLink) error {
	return translateError(r.db.WithContext(ctx).Create(link).Error)
}

func (r *resellLinkGormRepository) FindByID(ctx context.Context, id int64) (model.ResellLink, error) {
	var l model.ResellLink
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return model.ResellLink{}, translateError(err)
	}
	return l, nil
}

func (r *resellLinkGormRepository) FindBySlug(ctx context.Context, slug string) (model.ResellLink, error) {
	var l model.ResellLink
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&l).Error; err != nil {
		return model.ResellLink{}, translateError(err)
	}
	return l, nil
}

func (r *resellLinkGormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ResellLink{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *resellLinkGormRepository) ListByUser(ctx context.Context, userID int64, includeInactive bool) ([]model.ResellLink, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var links []model.ResellLink
	if err := q.Order("id desc").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// 行があれば何度呼んでも成功。無ければ ErrNotFound
func (r *resellLinkGormRepository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.ResellLink{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
