// Package logger は slog の初期化と、ログに trace_id を載せる補助を持つ。
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// New は本番ではJSON、開発ではテキストで出す logger を作る
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", "taziri-api"))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Traced(ctx context.Context) slog.Attr {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return slog.String("trace_id", sc.TraceID().String())
	}
	return slog.Any("trace_id", nil)
}

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}
