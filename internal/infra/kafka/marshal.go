package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"taziri/internal/domain/event"
)

func DecodeEnvelope(m kafka.Message) (event.Envelope, error) {
	var env event.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return event.Envelope{}, fmt.Errorf("decode envelope at offset %d: %w", m.Offset, err)
	}
	if env.EventType == "" {
		//ヘッダだけ付いている古いメッセージ
		env.EventType = headerValue(m.Headers, "x-event-type")
	}
	return env, nil
}

// EnvelopeHandler は Envelope を受け取る関数を Handler にする。
// 読めないメッセージはコミットして捨てる
func EnvelopeHandler(log *slog.Logger, fn func(ctx context.Context, env event.Envelope) error) Handler {
	return func(ctx context.Context, m kafka.Message) error {
		env, err := DecodeEnvelope(m)
		if err != nil {
			log.Warn("drop undecodable message", slog.Int64("offset", m.Offset), slog.String("error", err.Error()))
			return nil
		}
		return fn(ctx, env)
	}
}
