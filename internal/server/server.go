package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taziri/internal/handler"
	"taziri/internal/logger"
	"taziri/internal/middleware"
	"taziri/internal/validator"
)

// Check は /healthz で見る依存先。nil を返せば正常
type Check func(ctx context.Context) error

// アップロードの上限（5MB）に multipart の分を足したもの
const bodyLimit = "6M"

func New(log *slog.Logger, g handler.Guards, h Handlers, checks map[string]Check) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Tracing())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit(bodyLimit))

	e.GET("/healthz", healthz(checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	RegisterRoutes(e, g, h)
	return e
}

func healthz(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		res := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				res[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			res[name] = "ok"
		}
		return c.JSON(status, res)
	}
}

// Start は ctx が終わるまで待ち受け、終わったら接続を捌き切ってから戻る
func Start(ctx context.Context, e *echo.Echo, addr string, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", logger.Err(err))
		return err
	}
	return nil
}
