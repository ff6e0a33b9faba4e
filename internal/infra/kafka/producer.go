package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"taziri/internal/domain/event"
)

// Producer は order.events へ Envelope を流す。書き込みは非同期で、失敗はログに出す
type Producer struct {
	w   *kafka.Writer
	log *slog.Logger
}

func NewProducer(brokers []string, topic string, log *slog.Logger) *Producer {
	p := &Producer{log: log}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   p.onComplete,
	}
	return p
}

func (p *Producer) onComplete(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		p.log.Error("kafka publish failed",
			slog.String("key", string(m.Key)),
			slog.String("event_type", headerValue(m.Headers, "x-event-type")),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Producer) Publish(ctx context.Context, env event.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   env.PartitionKey(),
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	})
}

// 溜まっている分を送り切ってから閉じる
func (p *Producer) Close() error {
	return p.w.Close()
}

func headerValue(hs []kafka.Header, key string) string {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
