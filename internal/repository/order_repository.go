package repository

import (
	"context"
	"time"

	"taziri/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page     int
	Limit    int
	Status   string
	SellerID *int64
	From     *time.Time
	To       *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//Tx内で行ロックを取って読む
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	//冪等キー重複は ErrConflict
	Create(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	SetTrackingNumber(ctx context.Context, orderID int64, tracking string) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error)
	//出品者として、または自分の再販リンク経由で入った注文
	ListSelling(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
