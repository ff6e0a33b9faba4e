package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/model"
)

func newChatUC() (*ChatUsecase, *ConversationRepoMock, *ChatHubMock) {
	convs := new(ConversationRepoMock)
	hub := new(ChatHubMock)
	return NewChatUsecase(convs, hub, discardLogger()), convs, hub
}

func TestChat_CreateConversationWithFirstMessage(t *testing.T) {
	u, convs, hub := newChatUC()
	convs.On("Create", mock.Anything, mock.MatchedBy(func(c *model.Conversation) bool {
		return c.UserID == 8 && c.Subject == "Livraison" && c.Status == model.ConversationOpen
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Conversation).ID = 3
	}).Return(nil)
	convs.On("FindByID", mock.Anything, int64(3)).Return(model.Conversation{ID: 3, UserID: 8, Status: model.ConversationOpen}, nil)
	convs.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *model.Message) bool {
		return m.ConversationID == 3 && m.SenderID == 8 && m.Body == "Où est ma commande ?"
	})).Return(nil)
	convs.On("Touch", mock.Anything, int64(3)).Return(nil)
	hub.On("Publish", mock.Anything, int64(3), mock.Anything).Return(nil)

	c, err := u.CreateConversation(context.Background(), Caller{UserID: 8}, CreateConversationInput{Subject: "Livraison", Message: "Où est ma commande ?"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
	convs.AssertExpectations(t)
	hub.AssertExpectations(t)
}

// 他人の会話は見えない。管理者は見える
func TestChat_Authorization(t *testing.T) {
	u, convs, _ := newChatUC()
	convs.On("FindByID", mock.Anything, int64(3)).Return(model.Conversation{ID: 3, UserID: 8}, nil)
	convs.On("ListMessages", mock.Anything, int64(3), int64(0), 50).Return([]model.Message{{ID: 1}}, nil)

	_, err := u.ListMessages(context.Background(), Caller{UserID: 9}, 3, 0, 50)
	assertStatus(t, err, 404)

	msgs, err := u.ListMessages(context.Background(), Caller{UserID: 1, IsAdmin: true}, 3, 0, 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestChat_SendToClosedConversation(t *testing.T) {
	u, convs, _ := newChatUC()
	convs.On("FindByID", mock.Anything, int64(3)).Return(model.Conversation{ID: 3, UserID: 8, Status: model.ConversationClosed}, nil)

	_, err := u.SendMessage(context.Background(), Caller{UserID: 8}, 3, "hello")
	assertStatus(t, err, 409)
	convs.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

// pub/sub が落ちていてもメッセージは保存される
func TestChat_SendPublishFailureIgnored(t *testing.T) {
	u, convs, hub := newChatUC()
	convs.On("FindByID", mock.Anything, int64(3)).Return(model.Conversation{ID: 3, UserID: 8, Status: model.ConversationOpen}, nil)
	convs.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
	convs.On("Touch", mock.Anything, int64(3)).Return(nil)
	hub.On("Publish", mock.Anything, int64(3), mock.Anything).Return(assert.AnError)

	_, err := u.SendMessage(context.Background(), Caller{UserID: 8}, 3, "hello")
	require.NoError(t, err)
}

func TestChat_ListConversations(t *testing.T) {
	u, convs, _ := newChatUC()
	convs.On("ListByUser", mock.Anything, int64(8)).Return([]model.Conversation{{ID: 1}}, nil)
	convs.On("ListAll", mock.Anything, "open", 100).Return([]model.Conversation{{ID: 1}, {ID: 2}}, nil)

	mine, err := u.ListConversations(context.Background(), Caller{UserID: 8}, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := u.ListConversations(context.Background(), Caller{UserID: 1, IsAdmin: true}, "open")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = u.ListConversations(context.Background(), Caller{UserID: 1, IsAdmin: true}, "archived")
	assertStatus(t, err, 400)
}

func TestChat_Subscribe(t *testing.T) {
	u, convs, hub := newChatUC()
	convs.On("FindByID", mock.Anything, int64(3)).Return(model.Conversation{ID: 3, UserID: 8}, nil)
	ch := make(chan []byte)
	hub.On("Subscribe", mock.Anything, int64(3)).Return((<-chan []byte)(ch), func() {}, nil)

	got, cancel, err := u.Subscribe(context.Background(), Caller{UserID: 8}, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	cancel()
}
