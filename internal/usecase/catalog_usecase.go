package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"taziri/internal/domain/model"
	repo "taziri/internal/repository"
)

// 商品とオファー（期間限定）をまとめて扱う
type CatalogUsecase struct {
	products repo.ProductRepository
	offers   repo.OfferRepository
	tx       repo.TransactionManager
	now      func() time.Time
}

// DI
func NewCatalogUsecase(
	products repo.ProductRepository,
	offers repo.OfferRepository,
	tx repo.TransactionManager,
) *CatalogUsecase {
	return &CatalogUsecase{
		products: products,
		offers:   offers,
		tx:       tx,
		now:      time.Now,
	}
}

// GET /products, GET /offers の入力DTO
type ListListingsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type ListOutput[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func (in ListListingsInput) validate() (repo.ListingQuery, error) {
	if in.Page < 1 {
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return repo.ListingQuery{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}
	return repo.ListingQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: strings.TrimSpace(in.Category),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	}, nil
}

func (u *CatalogUsecase) ListPublicProducts(ctx context.Context, in ListListingsInput) (ListOutput[model.Product], error) {
	q, err := in.validate()
	if err != nil {
		return ListOutput[model.Product]{}, err
	}
	items, total, err := u.products.ListPublic(ctx, q)
	if err != nil {
		return ListOutput[model.Product]{}, errDB()
	}
	return ListOutput[model.Product]{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *CatalogUsecase) ListPublicOffers(ctx context.Context, in ListListingsInput) (ListOutput[model.Offer], error) {
	q, err := in.validate()
	if err != nil {
		return ListOutput[model.Offer]{}, err
	}
	items, total, err := u.offers.ListPublic(ctx, q, u.now())
	if err != nil {
		return ListOutput[model.Offer]{}, errDB()
	}
	return ListOutput[model.Offer]{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *CatalogUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound()
	}
	if err != nil {
		return model.Product{}, errDB()
	}

	//非公開は存在しない扱い
	if !p.IsActive {
		return model.Product{}, errNotFound()
	}
	return p, nil
}

func (u *CatalogUsecase) GetOfferDetail(ctx context.Context, offerID int64) (model.Offer, error) {
	if offerID <= 0 {
		return model.Offer{}, NewHTTPError(http.StatusBadRequest, "invalid offer id")
	}

	o, err := u.offers.FindByID(ctx, offerID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Offer{}, errNotFound()
	}
	if err != nil {
		return model.Offer{}, errDB()
	}
	if !o.IsAvailable(u.now()) {
		return model.Offer{}, errNotFound()
	}
	return o, nil
}

// 注文・再販で使う商品/オファーの共通表現
type ItemSummary struct {
	Type      model.ItemType  `json:"type"`
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	SellerID  *int64          `json:"seller_id,omitempty"`
	Available bool            `json:"available"`
}

// loadItem は非公開のものも返す（Available=false）。無ければ404
func (u *CatalogUsecase) loadItem(ctx context.Context, t model.ItemType, id int64) (ItemSummary, error) {
	if id <= 0 {
		return ItemSummary{}, NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	switch t {
	case model.ItemTypeProduct:
		p, err := u.products.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ItemSummary{}, errNotFound()
		}
		if err != nil {
			return ItemSummary{}, errDB()
		}
		return ItemSummary{
			Type:      t,
			ID:        p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     p.EffectivePrice(),
			SellerID:  p.SellerID,
			Available: p.IsActive,
		}, nil
	case model.ItemTypeOffer:
		o, err := u.offers.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ItemSummary{}, errNotFound()
		}
		if err != nil {
			return ItemSummary{}, errDB()
		}
		return ItemSummary{
			Type:      t,
			ID:        o.ID,
			Name:      o.Title,
			ImageURL:  o.ImageURL,
			Price:     o.EffectivePrice(),
			SellerID:  o.SellerID,
			Available: o.IsAvailable(u.now()),
		}, nil
	default:
		return ItemSummary{}, NewHTTPError(http.StatusBadRequest, "invalid item type")
	}
}

type AdminProductInput struct {
	SellerID      *int64
	Name          string
	Description   string
	Category      string
	ImageURL      string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	IsActive      bool
}

type AdminOfferInput struct {
	SellerID      *int64
	Title         string
	Description   string
	ImageURL      string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	IsActive      bool
	EndsAt        *time.Time
}

func validatePrices(price decimal.Decimal, discount *decimal.Decimal) error {
	if price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if discount != nil && discount.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "discount_price must be >= 0")
	}
	return nil
}

func (in AdminProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	return validatePrices(in.Price, in.DiscountPrice)
}

func (in AdminOfferInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return NewHTTPError(http.StatusBadRequest, "title required")
	}
	return validatePrices(in.Price, in.DiscountPrice)
}

func (in AdminProductInput) toModel(id int64, actor int64) model.Product {
	seller := in.SellerID
	if seller == nil {
		seller = &actor
	}
	return model.Product{
		ID:            id,
		SellerID:      seller,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Category:      strings.TrimSpace(in.Category),
		ImageURL:      in.ImageURL,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		IsActive:      in.IsActive,
	}
}

func (in AdminOfferInput) toModel(id int64, actor int64) model.Offer {
	seller := in.SellerID
	if seller == nil {
		seller = &actor
	}
	return model.Offer{
		ID:            id,
		SellerID:      seller,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		ImageURL:      in.ImageURL,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		IsActive:      in.IsActive,
		EndsAt:        in.EndsAt,
	}
}

func (u *CatalogUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (int64, error) {
	if adminUserID <= 0 {
		return 0, ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return 0, err
	}

	var id int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().Create(ctx, in.toModel(0, adminUserID))
		if err != nil {
			return errDB()
		}
		id = p.ID
		return u.audit(ctx, r, adminUserID, model.AuditActionUpsertListing, model.AuditResourceProduct, p.ID, nil, p)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (u *CatalogUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := in.validate(); err != nil {
		return err
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}

		after := in.toModel(productID, adminUserID)
		after.CreatedAt = before.CreatedAt
		if err := r.Products().Update(ctx, after); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}
		return u.audit(ctx, r, adminUserID, model.AuditActionUpsertListing, model.AuditResourceProduct, productID, before, after)
	})
}

func (u *CatalogUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}
		return u.audit(ctx, r, adminUserID, model.AuditActionDeleteListing, model.AuditResourceProduct, productID, before, nil)
	})
}

func (u *CatalogUsecase) AdminCreateOffer(ctx context.Context, adminUserID int64, in AdminOfferInput) (int64, error) {
	if adminUserID <= 0 {
		return 0, ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return 0, err
	}

	var id int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Offers().Create(ctx, in.toModel(0, adminUserID))
		if err != nil {
			return errDB()
		}
		id = o.ID
		return u.audit(ctx, r, adminUserID, model.AuditActionUpsertListing, model.AuditResourceOffer, o.ID, nil, o)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (u *CatalogUsecase) AdminUpdateOffer(ctx context.Context, adminUserID int64, offerID int64, in AdminOfferInput) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}
	if offerID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid offer id")
	}
	if err := in.validate(); err != nil {
		return err
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Offers().FindByID(ctx, offerID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}

		after := in.toModel(offerID, adminUserID)
		after.CreatedAt = before.CreatedAt
		if err := r.Offers().Update(ctx, after); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}
		return u.audit(ctx, r, adminUserID, model.AuditActionUpsertListing, model.AuditResourceOffer, offerID, before, after)
	})
}

func (u *CatalogUsecase) AdminDeleteOffer(ctx context.Context, adminUserID int64, offerID int64) error {
	if adminUserID <= 0 {
		return ErrUnauthorized
	}
	if offerID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid offer id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Offers().FindByID(ctx, offerID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if err := r.Offers().SoftDelete(ctx, offerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}
		return u.audit(ctx, r, adminUserID, model.AuditActionDeleteListing, model.AuditResourceOffer, offerID, before, nil)
	})
}

// 監査ログ。before/after は nil なら空
func (u *CatalogUsecase) audit(ctx context.Context, r repo.TxRepos, actor int64, action model.AuditAction, rt model.AuditResourceType, id int64, before, after any) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: rt,
		ResourceID:   id,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    u.now(),
	}); err != nil {
		return errDB()
	}
	return nil
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
