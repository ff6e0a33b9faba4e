package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"taziri/internal/domain/event"
	"taziri/internal/domain/model"
	"taziri/internal/infra/carrier"
	"taziri/internal/logger"
	"taziri/internal/metric"
	repo "taziri/internal/repository"
	"taziri/internal/trace"
)

const (
	backoffBase = 30 * time.Second
	backoffMax  = 30 * time.Minute
	// 処理中のジョブを他のワーカーに渡さない時間
	dispatchLease = 2 * time.Minute
	dispatchBatch = 10
)

type DispatcherConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// ShipmentDispatcher は shipment_jobs を取り出して配送会社に登録する
type ShipmentDispatcher struct {
	tx          repo.TransactionManager
	jobs        repo.ShipmentJobRepository
	orders      repo.OrderRepository
	carrier     CarrierClient
	publisher   EventPublisher
	statusCache Cache
	log         *slog.Logger

	maxAttempts int
	interval    time.Duration
	now         func() time.Time
	jitter      func(d time.Duration) time.Duration
}

func NewShipmentDispatcher(
	cfg DispatcherConfig,
	tx repo.TransactionManager,
	jobs repo.ShipmentJobRepository,
	orders repo.OrderRepository,
	carrierClient CarrierClient,
	publisher EventPublisher,
	statusCache Cache,
	log *slog.Logger,
) *ShipmentDispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	return &ShipmentDispatcher{
		tx:          tx,
		jobs:        jobs,
		orders:      orders,
		carrier:     carrierClient,
		publisher:   publisher,
		statusCache: statusCache,
		log:         log.With(slog.String("component", "shipment_dispatcher")),
		maxAttempts: cfg.MaxAttempts,
		interval:    cfg.Interval,
		now:         time.Now,
		jitter: func(d time.Duration) time.Duration {
			return time.Duration(rand.Int64N(int64(d)/4 + 1))
		},
	}
}

// Run は ctx が終わるまで回る。wake は LISTEN の通知（nil可）
func (d *ShipmentDispatcher) Run(ctx context.Context, wake <-chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("dispatcher started", slog.Duration("interval", d.interval), slog.Int("max_attempts", d.maxAttempts))
	for {
		if _, err := d.DispatchDue(ctx); err != nil && ctx.Err() == nil {
			d.log.Error("dispatch due jobs", logger.Err(err))
		}
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
		case <-wake:
		}
	}
}

// DispatchDue は期限の来たジョブを1バッチ処理して件数を返す
func (d *ShipmentDispatcher) DispatchDue(ctx context.Context) (int, error) {
	jobs, err := d.jobs.ClaimDue(ctx, d.now(), dispatchLease, dispatchBatch)
	if err != nil {
		return 0, fmt.Errorf("claim shipment jobs: %w", err)
	}
	for _, job := range jobs {
		d.process(ctx, job)
	}

	if n, err := d.jobs.CountByState(ctx, model.ShipmentJobQueued); err == nil {
		metric.ShipmentBacklog.Set(float64(n))
	}
	return len(jobs), nil
}

func (d *ShipmentDispatcher) process(ctx context.Context, job model.ShipmentJob) {
	ctx, span := trace.Tracer().Start(ctx, "shipment.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", job.OrderID),
		attribute.Int("shipment.attempt", job.Attempts),
	)

	log := d.log.With(logger.Traced(ctx), slog.Int64("order_id", job.OrderID), slog.Int("attempt", job.Attempts))

	order, err := d.orders.FindByID(ctx, job.OrderID)
	if errors.Is(err, repo.ErrNotFound) {
		d.fail(ctx, log, job, "order not found")
		return
	}
	if err != nil {
		//DBが戻ればleaseが切れて拾い直される
		log.Error("load order", logger.Err(err))
		return
	}

	if order.Status == model.OrderStatusCancelled {
		if err := d.jobs.CancelQueued(ctx, order.ID); err != nil {
			log.Error("cancel job", logger.Err(err))
		}
		metric.CarrierAttempts.WithLabelValues("skipped").Inc()
		return
	}

	//登録済みなら呼ばない
	if order.TrackingNumber != nil && *order.TrackingNumber != "" {
		if err := d.jobs.MarkDone(ctx, job.ID, *order.TrackingNumber); err != nil && !errors.Is(err, repo.ErrNotFound) {
			log.Error("mark job done", logger.Err(err))
		}
		metric.CarrierAttempts.WithLabelValues("skipped").Inc()
		return
	}

	reg, err := d.carrier.Register(ctx, BuildParcel(order))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "carrier register")
		if errors.Is(err, carrier.ErrRejected) || job.Attempts >= d.maxAttempts {
			d.fail(ctx, log, job, err.Error())
			return
		}
		next := d.now().Add(d.backoff(job.Attempts))
		if err := d.jobs.MarkRetry(ctx, job.ID, next, err.Error()); err != nil && !errors.Is(err, repo.ErrNotFound) {
			log.Error("mark job retry", logger.Err(err))
		}
		metric.CarrierAttempts.WithLabelValues("retry").Inc()
		log.Warn("carrier registration failed, will retry", slog.Time("next_attempt_at", next), logger.Err(err))
		return
	}

	err = d.complete(ctx, job, reg.Tracking)
	if errors.Is(err, errJobNotQueued) {
		//登録中に取り消された。配送会社側は手で取り消す必要がある
		metric.CarrierAttempts.WithLabelValues("registered_after_cancel").Inc()
		log.Warn("parcel registered after order was cancelled", slog.String("tracking", reg.Tracking))
		return
	}
	if err != nil {
		//次の試行で同じ参照番号を送り直す
		log.Error("save tracking number", slog.String("tracking", reg.Tracking), logger.Err(err))
		return
	}
	metric.CarrierAttempts.WithLabelValues("success").Inc()

	if err := d.statusCache.Delete(ctx, order.ID); err != nil {
		log.Warn("status cache delete", logger.Err(err))
	}
	publishEvent(ctx, d.publisher, d.log, event.TypeShipmentRegistered, order.ID, event.ShipmentRegisteredPayload{
		OrderID:        order.ID,
		TrackingNumber: reg.Tracking,
		Attempts:       job.Attempts,
		SellerID:       order.SellerID,
	})
	log.Info("shipment registered", slog.String("tracking", reg.Tracking))
}

var errJobNotQueued = errors.New("shipment job no longer queued")

// 注文行をロックして取り消しと直列にし、ジョブ完了と追跡番号を同じTxで書く
func (d *ShipmentDispatcher) complete(ctx context.Context, job model.ShipmentJob, tracking string) error {
	return d.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, job.OrderID)
		if err != nil {
			return err
		}
		if o.Status == model.OrderStatusCancelled {
			return errJobNotQueued
		}
		if err := r.ShipmentJobs().MarkDone(ctx, job.ID, tracking); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errJobNotQueued
			}
			return err
		}
		return r.Orders().SetTrackingNumber(ctx, o.ID, tracking)
	})
}

func (d *ShipmentDispatcher) fail(ctx context.Context, log *slog.Logger, job model.ShipmentJob, reason string) {
	if err := d.jobs.MarkFailed(ctx, job.ID, reason); err != nil && !errors.Is(err, repo.ErrNotFound) {
		log.Error("mark job failed", logger.Err(err))
	}
	metric.CarrierAttempts.WithLabelValues("failed").Inc()
	log.Warn("shipment registration gave up", slog.String("reason", reason))
}

// 30s, 60s, 120s ... 上限30分。最大25%の揺らぎを足す
func (d *ShipmentDispatcher) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := backoffBase
	for i := 1; i < attempt && b < backoffMax; i++ {
		b *= 2
	}
	if b > backoffMax {
		b = backoffMax
	}
	return b + d.jitter(b)
}

// BuildParcel は注文から配送会社への登録内容を作る。参照番号は注文IDで固定
func BuildParcel(o model.Order) carrier.Parcel {
	first, family := splitName(o.CustomerName)
	return carrier.Parcel{
		Reference:     fmt.Sprintf("TZ-%d", o.ID),
		FirstName:     first,
		FamilyName:    family,
		ContactPhone:  o.PhoneNumber,
		Address:       o.Address,
		ToCommuneName: o.Commune,
		ToWilayaName:  o.Wilaya,
		ToWilayaCode:  o.WilayaCode,
		ProductList:   fmt.Sprintf("%s x%d", o.ItemName, o.Quantity),
		Price:         o.TotalAmount.Round(0).IntPart(),
		IsStopDesk:    o.DeliveryType == model.DeliveryStopDesk,
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
