package repository

import (
	"context"

	"taziri/internal/domain/model"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *model.Conversation) error
	FindByID(ctx context.Context, id int64) (model.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error)
	ListAll(ctx context.Context, status string, limit int) ([]model.Conversation, error)
	Touch(ctx context.Context, id int64) error

	CreateMessage(ctx context.Context, m *model.Message) error
	//afterID より新しいものを古い順で
	ListMessages(ctx context.Context, conversationID int64, afterID int64, limit int) ([]model.Message, error)
}
