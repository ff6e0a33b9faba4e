package repository

import (
	"context"

	"gorm.io/gorm"

	repo "taziri/internal/repository"
)

type txReposGorm struct {
	orders       repo.OrderRepository
	shipmentJobs repo.ShipmentJobRepository
	auditLogs    repo.AuditLogRepository
	products     repo.ProductRepository
	offers       repo.OfferRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) ShipmentJobs() repo.ShipmentJobRepository { return r.shipmentJobs }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository       { return r.auditLogs }
func (r *txReposGorm) Products() repo.ProductRepository         { return r.products }
func (r *txReposGorm) Offers() repo.OfferRepository             { return r.offers }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:       NewOrderGormRepository(tx),
			shipmentJobs: NewShipmentJobGormRepository(tx),
			auditLogs:    NewAuditLogGormRepository(tx),
			products:     NewProductGormRepository(tx),
			offers:       NewOfferGormRepository(tx),
		}
		return fn(r)
	})
}
