package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taziri/internal/domain/model"
	"taziri/internal/logger"
	repo "taziri/internal/repository"
)

const maxMessageLength = 4000

// サポートとのチャット。本人か管理者だけが見られる
type ChatUsecase struct {
	convs repo.ConversationRepository
	hub   ChatHub
	log   *slog.Logger
}

func NewChatUsecase(convs repo.ConversationRepository, hub ChatHub, log *slog.Logger) *ChatUsecase {
	return &ChatUsecase{convs: convs, hub: hub, log: log}
}

// 呼び出し元
type Caller struct {
	UserID  int64
	IsAdmin bool
}

type CreateConversationInput struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (u *ChatUsecase) CreateConversation(ctx context.Context, caller Caller, in CreateConversationInput) (model.Conversation, error) {
	if caller.UserID <= 0 {
		return model.Conversation{}, ErrUnauthorized
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" || len(subject) > 255 {
		return model.Conversation{}, NewHTTPError(http.StatusBadRequest, "invalid subject")
	}

	c := &model.Conversation{UserID: caller.UserID, Subject: subject, Status: model.ConversationOpen}
	if err := u.convs.Create(ctx, c); err != nil {
		return model.Conversation{}, errDB()
	}

	if strings.TrimSpace(in.Message) != "" {
		if _, err := u.SendMessage(ctx, caller, c.ID, in.Message); err != nil {
			return model.Conversation{}, err
		}
	}
	return *c, nil
}

// 管理者は全件（status で絞れる）、一般ユーザーは自分の分だけ
func (u *ChatUsecase) ListConversations(ctx context.Context, caller Caller, status string) ([]model.Conversation, error) {
	if caller.UserID <= 0 {
		return nil, ErrUnauthorized
	}
	var (
		list []model.Conversation
		err  error
	)
	if caller.IsAdmin {
		switch model.ConversationStatus(status) {
		case "", model.ConversationOpen, model.ConversationClosed:
		default:
			return nil, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		list, err = u.convs.ListAll(ctx, status, 100)
	} else {
		list, err = u.convs.ListByUser(ctx, caller.UserID)
	}
	if err != nil {
		return nil, errDB()
	}
	return list, nil
}

func (u *ChatUsecase) ListMessages(ctx context.Context, caller Caller, conversationID, afterID int64, limit int) ([]model.Message, error) {
	if limit < 1 || limit > 200 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if afterID < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid after")
	}
	if _, err := u.authorize(ctx, caller, conversationID); err != nil {
		return nil, err
	}
	msgs, err := u.convs.ListMessages(ctx, conversationID, afterID, limit)
	if err != nil {
		return nil, errDB()
	}
	return msgs, nil
}

func (u *ChatUsecase) SendMessage(ctx context.Context, caller Caller, conversationID int64, body string) (model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > maxMessageLength {
		return model.Message{}, NewHTTPError(http.StatusBadRequest, "invalid message")
	}
	c, err := u.authorize(ctx, caller, conversationID)
	if err != nil {
		return model.Message{}, err
	}
	if c.Status == model.ConversationClosed {
		return model.Message{}, NewHTTPError(http.StatusConflict, "conversation closed")
	}

	m := &model.Message{ConversationID: conversationID, SenderID: caller.UserID, Body: body}
	if err := u.convs.CreateMessage(ctx, m); err != nil {
		return model.Message{}, errDB()
	}
	if err := u.convs.Touch(ctx, conversationID); err != nil {
		u.log.WarnContext(ctx, "touch conversation", logger.Traced(ctx), logger.Err(err))
	}

	//購読中の画面へ流す。届かなくても履歴からは読める
	if b, err := json.Marshal(m); err == nil {
		if err := u.hub.Publish(ctx, conversationID, b); err != nil {
			u.log.WarnContext(ctx, "chat publish", logger.Traced(ctx), slog.Int64("conversation_id", conversationID), logger.Err(err))
		}
	}
	return *m, nil
}

// Subscribe は新着メッセージ（JSON）のチャネルと解除関数を返す
func (u *ChatUsecase) Subscribe(ctx context.Context, caller Caller, conversationID int64) (<-chan []byte, func(), error) {
	if _, err := u.authorize(ctx, caller, conversationID); err != nil {
		return nil, nil, err
	}
	ch, cancel, err := u.hub.Subscribe(ctx, conversationID)
	if err != nil {
		return nil, nil, NewHTTPError(http.StatusServiceUnavailable, "chat unavailable")
	}
	return ch, cancel, nil
}

// 他人の会話は存在しない扱い
func (u *ChatUsecase) authorize(ctx context.Context, caller Caller, conversationID int64) (model.Conversation, error) {
	if caller.UserID <= 0 {
		return model.Conversation{}, ErrUnauthorized
	}
	if conversationID <= 0 {
		return model.Conversation{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	c, err := u.convs.FindByID(ctx, conversationID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Conversation{}, errNotFound()
	}
	if err != nil {
		return model.Conversation{}, errDB()
	}
	if c.UserID != caller.UserID && !caller.IsAdmin {
		return model.Conversation{}, errNotFound()
	}
	return c, nil
}
