package repository

import (
	"context"
	"time"

	"taziri/internal/domain/model"
)

type OfferRepository interface {
	//公開中かつ期限内のもの
	ListPublic(ctx context.Context, q ListingQuery, now time.Time) ([]model.Offer, int64, error)
	FindByID(ctx context.Context, id int64) (model.Offer, error)

	Create(ctx context.Context, o model.Offer) (model.Offer, error)
	Update(ctx context.Context, o model.Offer) error
	SoftDelete(ctx context.Context, id int64) error
}
