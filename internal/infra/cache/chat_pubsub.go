package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChatHub は会話ごとのチャネルでメッセージを配る。複数インスタンスでも届く
type ChatHub struct {
	rdb *redis.Client
}

func NewChatHub(rdb *redis.Client) *ChatHub {
	return &ChatHub{rdb: rdb}
}

func (h *ChatHub) Publish(ctx context.Context, conversationID int64, payload []byte) error {
	return h.rdb.Publish(ctx, fmt.Sprintf(KeyChatChannel, conversationID), payload).Err()
}

// Subscribe は ctx が終わるまで届いた payload を流す。戻り値の関数で購読を止める
func (h *ChatHub) Subscribe(ctx context.Context, conversationID int64) (<-chan []byte, func(), error) {
	sub := h.rdb.Subscribe(ctx, fmt.Sprintf(KeyChatChannel, conversationID))
	//購読が確立するまで待つ
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, func() { _ = sub.Close() }, nil
}
