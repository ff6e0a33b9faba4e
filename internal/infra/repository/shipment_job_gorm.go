package repository

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

// 積んだときに NOTIFY するチャネル。commit 時に届く
const ShipmentJobsChannel = "shipment_jobs"

type shipmentJobGormRepository struct {
	db *gorm.DB
}

func NewShipmentJobGormRepository(db *gorm.DB) repo.ShipmentJobRepository {
	return &shipmentJobGormRepository{db: db}
}

func (r *shipmentJobGormRepository) Enqueue(ctx context.Context, orderID int64, at time.Time) (model.ShipmentJob, error) {
	job := model.ShipmentJob{
		OrderID:       orderID,
		State:         model.ShipmentJobQueued,
		NextAttemptAt: at,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"state":           model.ShipmentJobQueued,
				"attempts":        0,
				"next_attempt_at": at,
				"last_error":      "",
				"updated_at":      at,
			}),
		}).
		Create(&job).Error
	if err != nil {
		return model.ShipmentJob{}, err
	}
	if err := r.db.WithContext(ctx).
		Exec("SELECT pg_notify(?, ?)", ShipmentJobsChannel, strconv.FormatInt(orderID, 10)).Error; err != nil {
		return model.ShipmentJob{}, err
	}
	return job, nil
}

func (r *shipmentJobGormRepository) FindByOrderID(ctx context.Context, orderID int64) (model.ShipmentJob, error) {
	var j model.ShipmentJob
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&j).Error; err != nil {
		return model.ShipmentJob{}, translateError(err)
	}
	return j, nil
}

// 複数インスタンスで回しても同じジョブを同時に掴まない
func (r *shipmentJobGormRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]model.ShipmentJob, error) {
	if limit <= 0 {
		limit = 10
	}
	var jobs []model.ShipmentJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state = ? AND next_attempt_at <= ?", model.ShipmentJobQueued, now).
			Order("next_attempt_at asc").
			Limit(limit).
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.ID)
		}
		leaseUntil := now.Add(lease)
		if err := tx.Model(&model.ShipmentJob{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"attempts":        gorm.Expr("attempts + 1"),
				"next_attempt_at": leaseUntil,
			}).Error; err != nil {
			return err
		}
		for i := range jobs {
			jobs[i].Attempts++
			jobs[i].NextAttemptAt = leaseUntil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// 以下3つは queued のときだけ更新する。途中でキャンセルされていたら ErrNotFound
func (r *shipmentJobGormRepository) MarkDone(ctx context.Context, jobID int64, tracking string) error {
	return r.updateQueued(ctx, jobID, map[string]interface{}{
		"state":           model.ShipmentJobDone,
		"tracking_number": tracking,
		"last_error":      "",
	})
}

func (r *shipmentJobGormRepository) MarkRetry(ctx context.Context, jobID int64, next time.Time, lastErr string) error {
	return r.updateQueued(ctx, jobID, map[string]interface{}{
		"next_attempt_at": next,
		"last_error":      lastErr,
	})
}

func (r *shipmentJobGormRepository) MarkFailed(ctx context.Context, jobID int64, lastErr string) error {
	return r.updateQueued(ctx, jobID, map[string]interface{}{
		"state":      model.ShipmentJobFailed,
		"last_error": lastErr,
	})
}

func (r *shipmentJobGormRepository) updateQueued(ctx context.Context, jobID int64, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.ShipmentJob{}).
		Where("id = ? AND state = ?", jobID, model.ShipmentJobQueued).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *shipmentJobGormRepository) CancelQueued(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Model(&model.ShipmentJob{}).
		Where("order_id = ? AND state = ?", orderID, model.ShipmentJobQueued).
		Update("state", model.ShipmentJobCancelled).Error
}

func (r *shipmentJobGormRepository) CountByState(ctx context.Context, state model.ShipmentJobState) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ShipmentJob{}).Where("state = ?", state).Count(&n).Error
	return n, err
}
