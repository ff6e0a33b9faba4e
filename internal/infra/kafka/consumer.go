package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler は処理に成功したときだけ nil を返す。nil のときだけオフセットをコミットする
type Handler func(ctx context.Context, m kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int
	log     *slog.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // 手動コミット
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r reader, workers int, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:         r,
		workers:   workers,
		log:       log,
		retryBase: 200 * time.Millisecond,
		retryMax:  30 * time.Second,
	}
}

// Start は ctx が終わるまで読み続ける。終了時は nil。
// 同じパーティションは常に同じワーカーが順番に処理する。
// 失敗したメッセージは成功するまでその場でやり直し、後ろのオフセットを先にコミットしない
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	done := make(chan struct{})
	for i := range queues {
		queues[i] = make(chan kafka.Message, 64)
		go func(q <-chan kafka.Message) {
			defer func() { done <- struct{}{} }()
			for m := range q {
				if !c.handle(ctx, h, m) {
					return
				}
			}
		}(queues[i])
	}

	stop := func() {
		for _, q := range queues {
			close(q)
		}
		for range queues {
			<-done
		}
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// handle は成功してコミットするまで戻らない。ctx が終わったら false
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) bool {
	wait := c.retryBase
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		err := h(ctx, m)
		if err == nil {
			break
		}
		c.log.Warn("kafka handler failed",
			slog.Int64("offset", m.Offset),
			slog.Int("partition", m.Partition),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			//コミットしていないので再起動後にここから読み直す
			return false
		case <-t.C:
		}
		if wait *= 2; wait > c.retryMax {
			wait = c.retryMax
		}
	}

	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Warn("kafka commit failed", slog.Int64("offset", m.Offset), slog.String("error", err.Error()))
	}
	return true
}
