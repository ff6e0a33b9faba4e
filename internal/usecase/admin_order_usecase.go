package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"taziri/internal/domain/event"
	"taziri/internal/domain/model"
	"taziri/internal/logger"
	"taziri/internal/metric"
	repo "taziri/internal/repository"
	"taziri/internal/trace"
)

type AdminOrderUsecase struct {
	tx          repo.TransactionManager
	orders      repo.OrderRepository
	jobs        repo.ShipmentJobRepository
	publisher   EventPublisher
	statusCache Cache
	log         *slog.Logger
	now         func() time.Time
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	jobs repo.ShipmentJobRepository,
	publisher EventPublisher,
	statusCache Cache,
	log *slog.Logger,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:          tx,
		orders:      orders,
		jobs:        jobs,
		publisher:   publisher,
		statusCache: statusCache,
		log:         log,
		now:         time.Now,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status string `json:"status"`
}

// confirmed にしたときは配送登録は非同期なので shipment は "queued"
type StatusUpdateOutput struct {
	OrderID        int64  `json:"order_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	Shipment       string `json:"shipment,omitempty"`
	Changed        bool   `json:"changed"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (ListOutput[OrderOutput], error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = string(st)
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return ListOutput[OrderOutput]{}, errDB()
	}
	items := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderOutput(o))
	}
	return ListOutput[OrderOutput]{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ステータス更新。confirmed なら同じTxで配送ジョブを積む
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (StatusUpdateOutput, error) {
	ctx, span := trace.Tracer().Start(ctx, "order.update_status")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	if actorAdminUserID <= 0 {
		return StatusUpdateOutput{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return StatusUpdateOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return StatusUpdateOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		out   StatusUpdateOutput
		order model.Order
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得（行ロック）
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		order = o

		out = StatusUpdateOutput{
			OrderID:        orderID,
			Status:         string(newStatus),
			PreviousStatus: string(o.Status),
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}
		if !model.CanTransition(o.Status, newStatus) {
			return NewHTTPError(http.StatusConflict, fmt.Sprintf("cannot change %s order to %s", o.Status, newStatus))
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}

		switch {
		case newStatus == model.OrderStatusConfirmed:
			if _, err := r.ShipmentJobs().Enqueue(ctx, orderID, u.now()); err != nil {
				return errDB()
			}
			out.Shipment = string(model.ShipmentJobQueued)
		case newStatus == model.OrderStatusCancelled && o.Status == model.OrderStatusConfirmed:
			//まだ登録前なら止める
			if err := r.ShipmentJobs().CancelQueued(ctx, orderID); err != nil {
				return errDB()
			}
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   toJSON(map[string]string{"status": string(o.Status)}),
			AfterJSON:    toJSON(map[string]string{"status": string(newStatus)}),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}

		out.Changed = true
		return nil
	})
	if err != nil {
		return StatusUpdateOutput{}, err
	}
	if !out.Changed {
		return out, nil
	}

	//ここから先はcommit後。失敗しても更新は取り消さない
	metric.StatusTransitions.WithLabelValues(out.PreviousStatus, out.Status).Inc()
	if err := u.statusCache.Delete(ctx, orderID); err != nil {
		u.log.WarnContext(ctx, "status cache delete", logger.Traced(ctx), slog.Int64("order_id", orderID), logger.Err(err))
	}
	publishEvent(ctx, u.publisher, u.log, event.TypeOrderStatusChanged, orderID, event.OrderStatusChangedPayload{
		OrderID:  orderID,
		From:     out.PreviousStatus,
		To:       out.Status,
		ActorID:  actorAdminUserID,
		SellerID: order.SellerID,
		Shipment: out.Shipment,
	})

	u.log.InfoContext(ctx, "order status changed",
		logger.Traced(ctx),
		slog.Int64("order_id", orderID),
		slog.String("from", out.PreviousStatus),
		slog.String("to", out.Status),
		slog.Int64("actor", actorAdminUserID),
	)
	return out, nil
}

// 失敗した配送登録をやり直す。failed のときだけ
func (u *AdminOrderUsecase) RetryShipment(ctx context.Context, actorAdminUserID int64, orderID int64) (model.ShipmentJob, error) {
	if actorAdminUserID <= 0 {
		return model.ShipmentJob{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return model.ShipmentJob{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var job model.ShipmentJob
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.ShipmentJobs().FindByOrderID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if before.State != model.ShipmentJobFailed {
			return NewHTTPError(http.StatusConflict, "shipment is "+string(before.State))
		}

		job, err = r.ShipmentJobs().Enqueue(ctx, orderID, u.now())
		if err != nil {
			return errDB()
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionRetryShipment,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   toJSON(map[string]any{"state": before.State, "attempts": before.Attempts, "last_error": before.LastError}),
			AfterJSON:    toJSON(map[string]any{"state": job.State, "attempts": 0}),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}
		return nil
	})
	if err != nil {
		return model.ShipmentJob{}, err
	}
	return job, nil
}

func (u *AdminOrderUsecase) GetShipment(ctx context.Context, orderID int64) (model.ShipmentJob, error) {
	if orderID <= 0 {
		return model.ShipmentJob{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	job, err := u.jobs.FindByOrderID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.ShipmentJob{}, errNotFound()
	}
	if err != nil {
		return model.ShipmentJob{}, errDB()
	}
	return job, nil
}
