package usecase

import (
	"context"
	"io"
	"time"

	"taziri/internal/domain/event"
	"taziri/internal/infra/carrier"
	"taziri/internal/infra/push"
)

// イベント送信。送れなくても本処理は巻き戻さない
type EventPublisher interface {
	Publish(ctx context.Context, env event.Envelope) error
}

// JSONで置くキャッシュ（Redis）
type Cache interface {
	Get(ctx context.Context, id any, out any) (bool, error)
	Set(ctx context.Context, id any, v any) error
	Delete(ctx context.Context, id any) error
}

type LoginLimiter interface {
	Locked(ctx context.Context, email string) (bool, time.Duration, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type CarrierClient interface {
	Register(ctx context.Context, p carrier.Parcel) (carrier.Registration, error)
}

type PushSender interface {
	Send(ctx context.Context, m push.Message) error
}

type MediaUploader interface {
	Upload(ctx context.Context, filename string, file io.Reader, folder string) (string, error)
}

type ChatHub interface {
	Publish(ctx context.Context, conversationID int64, payload []byte) error
	Subscribe(ctx context.Context, conversationID int64) (<-chan []byte, func(), error)
}

type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// 何もしない実装。Kafka/Redisを使わない構成やテストで使う
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, event.Envelope) error { return nil }

type NopCache struct{}

func (NopCache) Get(context.Context, any, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, any, any) error         { return nil }
func (NopCache) Delete(context.Context, any) error           { return nil }
