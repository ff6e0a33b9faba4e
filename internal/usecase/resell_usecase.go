package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"taziri/internal/domain/model"
	"taziri/internal/domain/resell"
	"taziri/internal/logger"
	"taziri/internal/metric"
	repo "taziri/internal/repository"
	"taziri/internal/trace"
)

type ResellUsecase struct {
	catalog       *CatalogUsecase
	links         repo.ResellLinkRepository
	users         repo.UserRepository
	cache         Cache
	publicBaseURL string
	newSlug       resell.Generator
	log           *slog.Logger
}

func NewResellUsecase(
	catalog *CatalogUsecase,
	links repo.ResellLinkRepository,
	users repo.UserRepository,
	cache Cache,
	publicBaseURL string,
	log *slog.Logger,
) *ResellUsecase {
	return &ResellUsecase{
		catalog:       catalog,
		links:         links,
		users:         users,
		cache:         cache,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newSlug:       resell.NewSlug,
		log:           log,
	}
}

type IssueResellLinkInput struct {
	ProductID     *int64           `json:"product_id"`
	OfferID       *int64           `json:"offer_id"`
	ResellerPrice *decimal.Decimal `json:"reseller_price"`
}

type ResellLinkOutput struct {
	ID            int64            `json:"id"`
	Slug          string           `json:"slug"`
	ItemType      string           `json:"item_type"`
	ItemID        int64            `json:"item_id"`
	ResellerPrice *decimal.Decimal `json:"reseller_price,omitempty"`
	IsActive      bool             `json:"is_active"`
	ShareURL      string           `json:"share_url"`
	CreatedAt     time.Time        `json:"created_at"`
}

// GET /resell/{slug} の結果。無効なリンクも返す（過去の注文から辿れるように）
type ResolvedResellLink struct {
	Link         ResellLinkOutput `json:"link"`
	Item         *ItemSummary     `json:"item,omitempty"`
	ResellerName string           `json:"reseller_name"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	Orderable    bool             `json:"orderable"`
}

func (u *ResellUsecase) Issue(ctx context.Context, userID int64, in IssueResellLinkInput) (ResellLinkOutput, error) {
	ctx, span := trace.Tracer().Start(ctx, "resell.issue")
	defer span.End()

	if userID <= 0 {
		return ResellLinkOutput{}, ErrUnauthorized
	}
	//どちらか一方だけ
	if (in.ProductID == nil) == (in.OfferID == nil) {
		return ResellLinkOutput{}, NewHTTPError(http.StatusBadRequest, "exactly one of product_id or offer_id is required")
	}

	itemType, itemID := model.ItemTypeProduct, int64(0)
	if in.ProductID != nil {
		itemID = *in.ProductID
	} else {
		itemType, itemID = model.ItemTypeOffer, *in.OfferID
	}

	item, err := u.catalog.loadItem(ctx, itemType, itemID)
	if err != nil {
		return ResellLinkOutput{}, err
	}
	if !item.Available {
		return ResellLinkOutput{}, errNotFound()
	}

	if in.ResellerPrice != nil {
		if !in.ResellerPrice.IsPositive() {
			return ResellLinkOutput{}, NewHTTPError(http.StatusBadRequest, "reseller_price must be > 0")
		}
		if in.ResellerPrice.LessThan(item.Price) {
			return ResellLinkOutput{}, NewHTTPError(http.StatusBadRequest, "reseller_price must not be below the item price")
		}
		rp := in.ResellerPrice.Round(2)
		in.ResellerPrice = &rp
	}

	link := model.ResellLink{
		UserID:        userID,
		ResellerPrice: in.ResellerPrice,
		IsActive:      true,
	}
	if itemType == model.ItemTypeProduct {
		link.ProductID = &itemID
	} else {
		link.OfferID = &itemID
	}

	_, collisions, err := resell.Allocate(u.newSlug, func(slug string) (bool, error) {
		exists, err := u.links.SlugExists(ctx, slug)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
		l := link
		l.Slug = slug
		if err := u.links.Create(ctx, &l); err != nil {
			//チェックとINSERTの間に取られた
			if errors.Is(err, repo.ErrConflict) {
				return true, nil
			}
			return false, err
		}
		link = l
		return false, nil
	})
	if collisions > 0 {
		metric.SlugCollisions.Add(float64(collisions))
	}
	span.SetAttributes(attribute.Int("resell.slug_collisions", collisions))
	if errors.Is(err, resell.ErrSlugExhausted) {
		u.log.ErrorContext(ctx, "slug allocation exhausted", logger.Traced(ctx), slog.Int("collisions", collisions))
		return ResellLinkOutput{}, NewHTTPError(http.StatusServiceUnavailable, "could not allocate slug")
	}
	if err != nil {
		return ResellLinkOutput{}, errDB()
	}

	u.log.InfoContext(ctx, "resell link issued",
		logger.Traced(ctx),
		slog.Int64("link_id", link.ID),
		slog.Int64("user_id", userID),
		slog.String("item_type", string(itemType)),
		slog.Int64("item_id", itemID),
	)
	return u.toOutput(link), nil
}

func (u *ResellUsecase) List(ctx context.Context, userID int64, includeInactive bool) ([]ResellLinkOutput, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	links, err := u.links.ListByUser(ctx, userID, includeInactive)
	if err != nil {
		return nil, errDB()
	}
	out := make([]ResellLinkOutput, 0, len(links))
	for _, l := range links {
		out = append(out, u.toOutput(l))
	}
	return out, nil
}

// 所有者だけ。他人のリンクは存在しない扱い（404）。何度呼んでも成功する
func (u *ResellUsecase) Deactivate(ctx context.Context, userID int64, linkID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if linkID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	link, err := u.links.FindByID(ctx, linkID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound()
	}
	if err != nil {
		return errDB()
	}
	if link.UserID != userID {
		return errNotFound()
	}

	if link.IsActive {
		if err := u.links.Deactivate(ctx, linkID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}
	}
	if err := u.cache.Delete(ctx, link.Slug); err != nil {
		u.log.WarnContext(ctx, "resell cache delete", logger.Traced(ctx), slog.String("slug", link.Slug), logger.Err(err))
	}
	return nil
}

func (u *ResellUsecase) Resolve(ctx context.Context, slug string) (ResolvedResellLink, error) {
	slug = strings.TrimSpace(slug)
	if !resell.IsValidSlug(slug) {
		return ResolvedResellLink{}, errNotFound()
	}

	var out ResolvedResellLink
	hit, err := u.cache.Get(ctx, slug, &out)
	if err != nil {
		u.log.WarnContext(ctx, "resell cache get", logger.Traced(ctx), logger.Err(err))
	}
	metric.CacheLookups.WithLabelValues("resell", hitLabel(hit)).Inc()
	if hit {
		return out, nil
	}

	link, err := u.links.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return ResolvedResellLink{}, errNotFound()
	}
	if err != nil {
		return ResolvedResellLink{}, errDB()
	}

	out = ResolvedResellLink{Link: u.toOutput(link)}

	t, id := link.ItemRef()
	item, err := u.catalog.loadItem(ctx, t, id)
	switch {
	case err == nil:
		out.Item = &item
		price := item.Price
		if link.ResellerPrice != nil {
			price = *link.ResellerPrice
		}
		out.UnitPrice = &price
		out.Orderable = link.IsActive && item.Available
	default:
		//商品が消えていてもリンク自体は返す
		if he, ok := AsHTTPError(err); !ok || he.Status != http.StatusNotFound {
			return ResolvedResellLink{}, err
		}
	}

	if reseller, err := u.users.FindByID(ctx, link.UserID); err == nil && reseller != nil {
		out.ResellerName = reseller.Name
	}

	if err := u.cache.Set(ctx, slug, out); err != nil {
		u.log.WarnContext(ctx, "resell cache set", logger.Traced(ctx), logger.Err(err))
	}
	return out, nil
}

func (u *ResellUsecase) toOutput(l model.ResellLink) ResellLinkOutput {
	t, id := l.ItemRef()
	return ResellLinkOutput{
		ID:            l.ID,
		Slug:          l.Slug,
		ItemType:      string(t),
		ItemID:        id,
		ResellerPrice: l.ResellerPrice,
		IsActive:      l.IsActive,
		ShareURL:      u.publicBaseURL + "/resell/" + l.Slug,
		CreatedAt:     l.CreatedAt,
	}
}
