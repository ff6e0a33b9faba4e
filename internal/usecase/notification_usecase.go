package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taziri/internal/domain/event"
	"taziri/internal/domain/model"
	"taziri/internal/infra/push"
	"taziri/internal/logger"
	"taziri/internal/metric"
	repo "taziri/internal/repository"
)

type NotificationUsecase struct {
	notifications repo.NotificationRepository
	now           func() time.Time
}

func NewNotificationUsecase(notifications repo.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications, now: time.Now}
}

func (u *NotificationUsecase) List(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	if limit < 1 || limit > 100 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}
	items, err := u.notifications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, errDB()
	}
	return items, nil
}

func (u *NotificationUsecase) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if notificationID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err := u.notifications.MarkRead(ctx, notificationID, userID, u.now())
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound()
	}
	if err != nil {
		return errDB()
	}
	return nil
}

// Notifier は order.events を受けて出品者/再販者に知らせる
type Notifier struct {
	notifications repo.NotificationRepository
	users         repo.UserRepository
	push          PushSender
	dedup         Deduper
	log           *slog.Logger
}

func NewNotifier(
	notifications repo.NotificationRepository,
	users repo.UserRepository,
	pushSender PushSender,
	dedup Deduper,
	log *slog.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		push:          pushSender,
		dedup:         dedup,
		log:           log.With(slog.String("component", "notifier")),
	}
}

type notice struct {
	userID  int64
	orderID int64
	title   string
	body    string
}

// Handle はエラーを返すとオフセットが進まず再配信される
func (n *Notifier) Handle(ctx context.Context, env event.Envelope) error {
	first, err := n.dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		metric.EventsConsumed.WithLabelValues(env.EventType, "ignored").Inc()
		return nil
	}

	nt, ok, err := buildNotice(env)
	if err != nil {
		//壊れたpayloadは再配信しても直らない
		n.log.Warn("drop malformed event", slog.String("event_id", env.EventID), logger.Err(err))
		metric.EventsConsumed.WithLabelValues(env.EventType, "ignored").Inc()
		return nil
	}
	if !ok {
		metric.EventsConsumed.WithLabelValues(env.EventType, "ignored").Inc()
		return nil
	}

	if err := n.deliver(ctx, env, nt); err != nil {
		if ferr := n.dedup.Forget(ctx, env.EventID); ferr != nil {
			n.log.Warn("dedup forget", logger.Err(ferr))
		}
		metric.EventsConsumed.WithLabelValues(env.EventType, "error").Inc()
		return err
	}
	metric.EventsConsumed.WithLabelValues(env.EventType, "ok").Inc()
	return nil
}

func buildNotice(env event.Envelope) (notice, bool, error) {
	switch env.EventType {
	case event.TypeOrderPlaced:
		p, err := event.Decode[event.OrderPlacedPayload](env)
		if err != nil || p.SellerID == nil {
			return notice{}, false, err
		}
		return notice{
			userID:  *p.SellerID,
			orderID: p.OrderID,
			title:   "New order",
			body:    fmt.Sprintf("Order #%d: %s x%d (%s DZD)", p.OrderID, p.ItemName, p.Quantity, p.TotalAmount),
		}, true, nil
	case event.TypeOrderStatusChanged:
		p, err := event.Decode[event.OrderStatusChangedPayload](env)
		if err != nil || p.SellerID == nil {
			return notice{}, false, err
		}
		return notice{
			userID:  *p.SellerID,
			orderID: p.OrderID,
			title:   "Order updated",
			body:    fmt.Sprintf("Order #%d is now %s", p.OrderID, p.To),
		}, true, nil
	case event.TypeShipmentRegistered:
		p, err := event.Decode[event.ShipmentRegisteredPayload](env)
		if err != nil || p.SellerID == nil {
			return notice{}, false, err
		}
		return notice{
			userID:  *p.SellerID,
			orderID: p.OrderID,
			title:   "Order handed to carrier",
			body:    fmt.Sprintf("Order #%d tracking number: %s", p.OrderID, p.TrackingNumber),
		}, true, nil
	default:
		return notice{}, false, nil
	}
}

func (n *Notifier) deliver(ctx context.Context, env event.Envelope, nt notice) error {
	data := map[string]any{
		"event_type": env.EventType,
		"order_id":   strconv.FormatInt(nt.orderID, 10),
	}
	row := &model.Notification{
		UserID:   nt.userID,
		Title:    nt.title,
		Body:     nt.body,
		DataJSON: toJSON(data),
	}
	if err := n.notifications.Create(ctx, row); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	user, err := n.users.FindByID(ctx, nt.userID)
	if err != nil || user == nil || user.PushToken == nil {
		return nil
	}
	//行は保存済みなので、プッシュの失敗では再配信しない
	err = n.push.Send(ctx, push.Message{
		To:    *user.PushToken,
		Title: nt.title,
		Body:  nt.body,
		Data:  data,
	})
	switch {
	case errors.Is(err, push.ErrInvalidToken):
		_ = n.users.SetPushToken(ctx, user.ID, nil)
	case err != nil:
		n.log.Warn("push send", slog.Int64("user_id", user.ID), logger.Err(err))
	}
	return nil
}
