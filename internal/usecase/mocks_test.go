package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/event"
	"taziri/internal/domain/model"
	"taziri/internal/infra/carrier"
	"taziri/internal/infra/push"
	repo "taziri/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders       repo.OrderRepository
	shipmentJobs repo.ShipmentJobRepository
	auditLogs    repo.AuditLogRepository
	products     repo.ProductRepository
	offers       repo.OfferRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository             { return r.orders }
func (r *TxReposMock) ShipmentJobs() repo.ShipmentJobRepository { return r.shipmentJobs }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository       { return r.auditLogs }
func (r *TxReposMock) Products() repo.ProductRepository         { return r.products }
func (r *TxReposMock) Offers() repo.OfferRepository             { return r.offers }

// =====================
// Repository mocks
// =====================

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *UserRepoMock) SetPushToken(ctx context.Context, userID int64, token *string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

type RefreshTokenRepoMock struct{ mock.Mock }

func (m *RefreshTokenRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	t, _ := args.Get(0).(*model.RefreshToken)
	return t, args.Error(1)
}

func (m *RefreshTokenRepoMock) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	args := m.Called(ctx, tokenID, usedAt)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	args := m.Called(ctx, tokenID, revokedAt)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) DeleteAllByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) DeleteByID(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ListingQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type OfferRepoMock struct{ mock.Mock }

func (m *OfferRepoMock) ListPublic(ctx context.Context, q repo.ListingQuery, now time.Time) ([]model.Offer, int64, error) {
	args := m.Called(ctx, q, now)
	items, _ := args.Get(0).([]model.Offer)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *OfferRepoMock) FindByID(ctx context.Context, id int64) (model.Offer, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(model.Offer)
	return o, args.Error(1)
}

func (m *OfferRepoMock) Create(ctx context.Context, o model.Offer) (model.Offer, error) {
	args := m.Called(ctx, o)
	out, _ := args.Get(0).(model.Offer)
	return out, args.Error(1)
}

func (m *OfferRepoMock) Update(ctx context.Context, o model.Offer) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *OfferRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) SetTrackingNumber(ctx context.Context, orderID int64, tracking string) error {
	args := m.Called(ctx, orderID, tracking)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	args := m.Called(ctx, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListSelling(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type ResellLinkRepoMock struct{ mock.Mock }

func (m *ResellLinkRepoMock) Create(ctx context.Context, link *model.ResellLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *ResellLinkRepoMock) FindByID(ctx context.Context, id int64) (model.ResellLink, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(model.ResellLink)
	return l, args.Error(1)
}

func (m *ResellLinkRepoMock) FindBySlug(ctx context.Context, slug string) (model.ResellLink, error) {
	args := m.Called(ctx, slug)
	l, _ := args.Get(0).(model.ResellLink)
	return l, args.Error(1)
}

func (m *ResellLinkRepoMock) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *ResellLinkRepoMock) ListByUser(ctx context.Context, userID int64, includeInactive bool) ([]model.ResellLink, error) {
	args := m.Called(ctx, userID, includeInactive)
	ls, _ := args.Get(0).([]model.ResellLink)
	return ls, args.Error(1)
}

func (m *ResellLinkRepoMock) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ShipmentJobRepoMock struct{ mock.Mock }

func (m *ShipmentJobRepoMock) Enqueue(ctx context.Context, orderID int64, at time.Time) (model.ShipmentJob, error) {
	args := m.Called(ctx, orderID, at)
	j, _ := args.Get(0).(model.ShipmentJob)
	return j, args.Error(1)
}

func (m *ShipmentJobRepoMock) FindByOrderID(ctx context.Context, orderID int64) (model.ShipmentJob, error) {
	args := m.Called(ctx, orderID)
	j, _ := args.Get(0).(model.ShipmentJob)
	return j, args.Error(1)
}

func (m *ShipmentJobRepoMock) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]model.ShipmentJob, error) {
	args := m.Called(ctx, now, lease, limit)
	js, _ := args.Get(0).([]model.ShipmentJob)
	return js, args.Error(1)
}

func (m *ShipmentJobRepoMock) MarkDone(ctx context.Context, jobID int64, tracking string) error {
	args := m.Called(ctx, jobID, tracking)
	return args.Error(0)
}

func (m *ShipmentJobRepoMock) MarkRetry(ctx context.Context, jobID int64, next time.Time, lastErr string) error {
	args := m.Called(ctx, jobID, next, lastErr)
	return args.Error(0)
}

func (m *ShipmentJobRepoMock) MarkFailed(ctx context.Context, jobID int64, lastErr string) error {
	args := m.Called(ctx, jobID, lastErr)
	return args.Error(0)
}

func (m *ShipmentJobRepoMock) CancelQueued(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *ShipmentJobRepoMock) CountByState(ctx context.Context, state model.ShipmentJobState) (int64, error) {
	args := m.Called(ctx, state)
	return args.Get(0).(int64), args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

type NotificationRepoMock struct{ mock.Mock }

func (m *NotificationRepoMock) Create(ctx context.Context, n *model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *NotificationRepoMock) ListByUser(ctx context.Context, userID int64, limit int, offset int) ([]model.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	ns, _ := args.Get(0).([]model.Notification)
	return ns, args.Error(1)
}

func (m *NotificationRepoMock) MarkRead(ctx context.Context, id int64, userID int64, at time.Time) error {
	args := m.Called(ctx, id, userID, at)
	return args.Error(0)
}

type ConversationRepoMock struct{ mock.Mock }

func (m *ConversationRepoMock) Create(ctx context.Context, c *model.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *ConversationRepoMock) FindByID(ctx context.Context, id int64) (model.Conversation, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Conversation)
	return c, args.Error(1)
}

func (m *ConversationRepoMock) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	args := m.Called(ctx, userID)
	cs, _ := args.Get(0).([]model.Conversation)
	return cs, args.Error(1)
}

func (m *ConversationRepoMock) ListAll(ctx context.Context, status string, limit int) ([]model.Conversation, error) {
	args := m.Called(ctx, status, limit)
	cs, _ := args.Get(0).([]model.Conversation)
	return cs, args.Error(1)
}

func (m *ConversationRepoMock) Touch(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ConversationRepoMock) CreateMessage(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *ConversationRepoMock) ListMessages(ctx context.Context, conversationID int64, afterID int64, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, afterID, limit)
	ms, _ := args.Get(0).([]model.Message)
	return ms, args.Error(1)
}

// =====================
// Port mocks
// =====================

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, env event.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, id any, out any) (bool, error) {
	args := m.Called(ctx, id, out)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, id any, v any) error {
	args := m.Called(ctx, id, v)
	return args.Error(0)
}

func (m *CacheMock) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type LimiterMock struct{ mock.Mock }

func (m *LimiterMock) Locked(ctx context.Context, email string) (bool, time.Duration, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

func (m *LimiterMock) Fail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *LimiterMock) Reset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type CarrierMock struct{ mock.Mock }

func (m *CarrierMock) Register(ctx context.Context, p carrier.Parcel) (carrier.Registration, error) {
	args := m.Called(ctx, p)
	r, _ := args.Get(0).(carrier.Registration)
	return r, args.Error(1)
}

type PushMock struct{ mock.Mock }

func (m *PushMock) Send(ctx context.Context, msg push.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MediaMock struct{ mock.Mock }

func (m *MediaMock) Upload(ctx context.Context, filename string, file io.Reader, folder string) (string, error) {
	args := m.Called(ctx, filename, file, folder)
	return args.String(0), args.Error(1)
}

type ChatHubMock struct{ mock.Mock }

func (m *ChatHubMock) Publish(ctx context.Context, conversationID int64, payload []byte) error {
	args := m.Called(ctx, conversationID, payload)
	return args.Error(0)
}

func (m *ChatHubMock) Subscribe(ctx context.Context, conversationID int64) (<-chan []byte, func(), error) {
	args := m.Called(ctx, conversationID)
	ch, _ := args.Get(0).(<-chan []byte)
	cancel, _ := args.Get(1).(func())
	return ch, cancel, args.Error(2)
}

type DeduperMock struct{ mock.Mock }

func (m *DeduperMock) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *DeduperMock) Forget(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, status, he.Status, he.Message)
}
