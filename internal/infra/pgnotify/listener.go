// Package pgnotify は Postgres の LISTEN/NOTIFY を待ち受ける。
package pgnotify

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Listener はチャネルに NOTIFY が来るたび Wake に信号を送る。
// 接続が切れたら lib/pq が張り直し、その間の取りこぼしに備えて再接続時にも信号を送る
type Listener struct {
	l    *pq.Listener
	wake chan struct{}
	log  *slog.Logger
}

func Listen(dsn, channel string, log *slog.Logger) (*Listener, error) {
	ln := &Listener{wake: make(chan struct{}, 1), log: log}
	ln.l = pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			log.Warn("pg listener disconnected", slog.Any("error", err))
		case pq.ListenerEventReconnected:
			log.Info("pg listener reconnected")
			ln.signal()
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn("pg listener connect failed", slog.Any("error", err))
		}
	})
	if err := ln.l.Listen(channel); err != nil {
		_ = ln.l.Close()
		return nil, err
	}
	return ln, nil
}

func (ln *Listener) signal() {
	select {
	case ln.wake <- struct{}{}:
	default:
	}
}

// Wake は複数の通知を1つにまとめて届ける
func (ln *Listener) Wake() <-chan struct{} {
	return ln.wake
}

// Run は ctx が終わるまで通知を Wake に流す
func (ln *Listener) Run(ctx context.Context) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ln.l.Notify:
			//再接続直後は nil が届く
			if n != nil {
				ln.log.Debug("pg notify", slog.String("channel", n.Channel), slog.String("payload", n.Extra))
			}
			ln.signal()
		case <-ping.C:
			if err := ln.l.Ping(); err != nil {
				ln.log.Warn("pg listener ping failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (ln *Listener) Close() error {
	return ln.l.Close()
}
