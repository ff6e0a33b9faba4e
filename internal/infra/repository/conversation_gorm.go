package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

type conversationGormRepository struct {
	db *gorm.DB
}

func NewConversationGormRepository(db *gorm.DB) repo.ConversationRepository {
	return &conversationGormRepository{db: db}
}

func (r *conversationGormRepository) Create(ctx context.Context, c *model.Conversation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *conversationGormRepository) FindByID(ctx context.Context, id int64) (model.Conversation, error) {
	var c model.Conversation
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Conversation{}, translateError(err)
	}
	return c, nil
}

func (r *conversationGormRepository) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// サポート側の受信箱
func (r *conversationGormRepository) ListAll(ctx context.Context, status string, limit int) ([]model.Conversation, error) {
	_, limit = normalizePage(1, limit)
	q := r.db.WithContext(ctx).Model(&model.Conversation{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []model.Conversation
	if err := q.Order("updated_at desc").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationGormRepository) Touch(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *conversationGormRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *conversationGormRepository) ListMessages(ctx context.Context, conversationID int64, afterID int64, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var list []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ?", conversationID, afterID).
		Order("id asc").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
