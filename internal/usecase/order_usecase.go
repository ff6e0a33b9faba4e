package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"taziri/internal/domain/event"
	"taziri/internal/domain/model"
	"taziri/internal/domain/pricing"
	"taziri/internal/domain/shipping"
	"taziri/internal/logger"
	"taziri/internal/metric"
	repo "taziri/internal/repository"
	"taziri/internal/trace"
)

const eventProducer = "taziri-api"

type OrderUsecase struct {
	catalog     *CatalogUsecase
	orders      repo.OrderRepository
	resellLinks repo.ResellLinkRepository
	users       repo.UserRepository
	publisher   EventPublisher
	statusCache Cache
	log         *slog.Logger
}

func NewOrderUsecase(
	catalog *CatalogUsecase,
	orders repo.OrderRepository,
	resellLinks repo.ResellLinkRepository,
	users repo.UserRepository,
	publisher EventPublisher,
	statusCache Cache,
	log *slog.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		catalog:     catalog,
		orders:      orders,
		resellLinks: resellLinks,
		users:       users,
		publisher:   publisher,
		statusCache: statusCache,
		log:         log,
	}
}

type QuoteInput struct {
	ItemType     string `json:"item_type"`
	ItemID       int64  `json:"item_id"`
	Quantity     int    `json:"quantity"`
	ResellSlug   string `json:"resell_slug"`
	Wilaya       string `json:"wilaya"`
	DeliveryType string `json:"delivery_type"`
}

type QuoteOutput struct {
	ItemType         string          `json:"item_type"`
	ItemID           int64           `json:"item_id"`
	ItemName         string          `json:"item_name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	WilayaCode       int             `json:"wilaya_code"`
	ShippingFallback bool            `json:"shipping_fallback"`
}

type CheckoutInput struct {
	QuoteInput
	CustomerName   string `json:"customer_name"`
	PhoneNumber    string `json:"phone_number"`
	Commune        string `json:"commune"`
	Address        string `json:"address"`
	IdempotencyKey string `json:"-"`
}

type OrderOutput struct {
	ID             int64            `json:"id"`
	ItemType       string           `json:"item_type"`
	ItemID         int64            `json:"item_id"`
	ItemName       string           `json:"item_name"`
	Quantity       int              `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	ShippingCost   decimal.Decimal  `json:"shipping_cost"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	CustomerName   string           `json:"customer_name"`
	PhoneNumber    string           `json:"phone_number"`
	Wilaya         string           `json:"wilaya"`
	Commune        string           `json:"commune"`
	Address        string           `json:"address"`
	DeliveryType   string           `json:"delivery_type"`
	Status         string           `json:"status"`
	ResellerPrice  *decimal.Decimal `json:"reseller_price,omitempty"`
	ResellLinkID   *int64           `json:"resell_link_id,omitempty"`
	SellerID       *int64           `json:"seller_id,omitempty"`
	SellerName     *string          `json:"seller_name,omitempty"`
	TrackingNumber *string          `json:"tracking_number,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// priced は見積もりと注文で共通の計算結果
type priced struct {
	item      ItemSummary
	link      *model.ResellLink
	breakdown pricing.Breakdown
	shipping  shipping.Quote
	delivery  model.DeliveryType
}

func (in QuoteInput) validate() error {
	if !model.ItemType(in.ItemType).Valid() {
		return NewHTTPError(http.StatusBadRequest, "invalid item_type")
	}
	if in.ItemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}
	if in.Quantity < 1 || in.Quantity > 1000 {
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	if strings.TrimSpace(in.Wilaya) == "" {
		return NewHTTPError(http.StatusBadRequest, "wilaya required")
	}
	if !model.DeliveryType(in.DeliveryType).Valid() {
		return NewHTTPError(http.StatusBadRequest, "invalid delivery_type")
	}
	return nil
}

func (u *OrderUsecase) price(ctx context.Context, in QuoteInput) (priced, error) {
	if err := in.validate(); err != nil {
		return priced{}, err
	}

	var (
		p    priced
		unit decimal.Decimal
	)

	slug := strings.TrimSpace(in.ResellSlug)
	if slug != "" {
		link, err := u.resellLinks.FindBySlug(ctx, slug)
		if errors.Is(err, repo.ErrNotFound) {
			return priced{}, NewHTTPError(http.StatusNotFound, "resell link not found")
		}
		if err != nil {
			return priced{}, errDB()
		}
		if !link.IsActive {
			return priced{}, NewHTTPError(http.StatusConflict, "resell link inactive")
		}
		//リンク先と注文対象が一致しないものは受けない
		t, id := link.ItemRef()
		if string(t) != in.ItemType || id != in.ItemID {
			return priced{}, NewHTTPError(http.StatusBadRequest, "item does not match resell link")
		}
		p.link = &link
	}

	item, err := u.catalog.loadItem(ctx, model.ItemType(in.ItemType), in.ItemID)
	if err != nil {
		return priced{}, err
	}
	if !item.Available {
		if p.link != nil {
			return priced{}, NewHTTPError(http.StatusConflict, "resell link inactive")
		}
		return priced{}, errNotFound()
	}
	p.item = item

	unit = item.Price
	if p.link != nil && p.link.ResellerPrice != nil {
		unit = *p.link.ResellerPrice
	}

	p.delivery = model.DeliveryType(in.DeliveryType)
	p.shipping = shipping.Lookup(in.Wilaya, shipping.Mode(in.DeliveryType))

	b, err := pricing.Calculate(unit, in.Quantity, p.shipping.Fee)
	if err != nil {
		return priced{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.breakdown = b
	return p, nil
}

// Quote は保存せずに金額だけ返す
func (u *OrderUsecase) Quote(ctx context.Context, in QuoteInput) (QuoteOutput, error) {
	p, err := u.price(ctx, in)
	if err != nil {
		return QuoteOutput{}, err
	}
	return toQuoteOutput(p), nil
}

func toQuoteOutput(p priced) QuoteOutput {
	out := QuoteOutput{
		ItemType:         string(p.item.Type),
		ItemID:           p.item.ID,
		ItemName:         p.item.Name,
		UnitPrice:        p.breakdown.UnitPrice,
		Quantity:         p.breakdown.Quantity,
		Subtotal:         p.breakdown.Subtotal,
		ShippingCost:     p.breakdown.ShippingCost,
		TotalAmount:      p.breakdown.TotalAmount,
		ShippingFallback: p.shipping.Fallback,
	}
	if p.shipping.Wilaya != nil {
		out.WilayaCode = p.shipping.Wilaya.Code
	}
	return out
}

// PlaceOrder はゲスト注文を作る。同じ冪等キーなら最初の注文を返す
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in CheckoutInput) (OrderOutput, bool, error) {
	ctx, span := trace.Tracer().Start(ctx, "order.checkout")
	defer span.End()

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "customer_name required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "phone_number required")
	}
	if strings.TrimSpace(in.Commune) == "" {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "commune required")
	}

	// 同じキーなら同じ結果
	existing, found, err := u.orders.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return OrderOutput{}, false, errDB()
	}
	if found {
		return toOrderOutput(existing), true, nil
	}

	p, err := u.price(ctx, in.QuoteInput)
	if err != nil {
		return OrderOutput{}, false, err
	}

	//売上の付く人：リンク経由なら再販者、そうでなければ出品者
	sellerID := p.item.SellerID
	if p.link != nil {
		sellerID = &p.link.UserID
	}
	var sellerName *string
	if sellerID != nil {
		if s, err := u.users.FindByID(ctx, *sellerID); err == nil && s != nil {
			name := s.Name
			sellerName = &name
		}
	}

	wilaya := strings.TrimSpace(in.Wilaya)
	order := &model.Order{
		ItemType:       p.item.Type,
		ItemID:         p.item.ID,
		ItemName:       p.item.Name,
		Quantity:       p.breakdown.Quantity,
		UnitPrice:      p.breakdown.UnitPrice,
		Subtotal:       p.breakdown.Subtotal,
		ShippingCost:   p.breakdown.ShippingCost,
		TotalAmount:    p.breakdown.TotalAmount,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		Wilaya:         wilaya,
		Commune:        strings.TrimSpace(in.Commune),
		Address:        strings.TrimSpace(in.Address),
		DeliveryType:   p.delivery,
		Status:         model.OrderStatusPending,
		SellerID:       sellerID,
		SellerName:     sellerName,
		IdempotencyKey: key,
	}
	if p.shipping.Wilaya != nil {
		order.WilayaCode = p.shipping.Wilaya.Code
		order.Wilaya = p.shipping.Wilaya.Name
	}
	if p.link != nil {
		order.ResellLinkID = &p.link.ID
		order.ResellerPrice = p.link.ResellerPrice
	}

	if err := u.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			//同時に同じキーが入った。勝った方を返す
			ex, found, err2 := u.orders.FindByIdempotencyKey(ctx, key)
			if err2 == nil && found {
				return toOrderOutput(ex), true, nil
			}
			return OrderOutput{}, false, NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		return OrderOutput{}, false, errDB()
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	metric.OrdersPlaced.WithLabelValues(string(order.ItemType), string(order.DeliveryType), strconv.FormatBool(p.link != nil)).Inc()

	total := order.TotalAmount.StringFixed(pricing.Scale)
	u.publish(ctx, event.TypeOrderPlaced, order.ID, event.OrderPlacedPayload{
		OrderID:      order.ID,
		ItemType:     string(order.ItemType),
		ItemID:       order.ItemID,
		ItemName:     order.ItemName,
		Quantity:     order.Quantity,
		TotalAmount:  total,
		Wilaya:       order.Wilaya,
		SellerID:     order.SellerID,
		ResellLinkID: order.ResellLinkID,
	})

	u.log.InfoContext(ctx, "order placed",
		logger.Traced(ctx),
		slog.Int64("order_id", order.ID),
		slog.String("total", total),
		slog.Bool("via_resell", p.link != nil),
	)

	return toOrderOutput(*order), false, nil
}

// イベント送信の失敗は注文を失敗にしない
func (u *OrderUsecase) publish(ctx context.Context, eventType string, orderID int64, payload any) {
	publishEvent(ctx, u.publisher, u.log, eventType, orderID, payload)
}

func publishEvent(ctx context.Context, p EventPublisher, log *slog.Logger, eventType string, orderID int64, payload any) {
	env, err := event.New(eventType, eventProducer, orderID, payload)
	if err != nil {
		log.ErrorContext(ctx, "build event", logger.Traced(ctx), slog.String("event_type", eventType), logger.Err(err))
		return
	}
	env.TraceID = traceID(ctx)
	if err := p.Publish(ctx, env); err != nil {
		log.WarnContext(ctx, "publish event", logger.Traced(ctx), slog.String("event_type", eventType), slog.Int64("order_id", orderID), logger.Err(err))
	}
}

func traceID(ctx context.Context) string {
	if v, ok := logger.Traced(ctx).Value.Any().(string); ok {
		return v
	}
	return ""
}

// 自分が出品者、または自分の再販リンク経由の注文
func (u *OrderUsecase) ListSelling(ctx context.Context, userID int64, page, limit int) (ListOutput[OrderOutput], error) {
	if userID <= 0 {
		return ListOutput[OrderOutput]{}, ErrUnauthorized
	}
	if page < 1 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := u.orders.ListSelling(ctx, userID, page, limit)
	if err != nil {
		return ListOutput[OrderOutput]{}, errDB()
	}
	items := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderOutput(o))
	}
	return ListOutput[OrderOutput]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// 注文追跡（ゲスト向け）。電話番号が一致しなければ404
type OrderTracking struct {
	OrderID        int64   `json:"order_id"`
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
	Phone          string  `json:"phone,omitempty"`
}

func (u *OrderUsecase) Track(ctx context.Context, orderID int64, phone string) (OrderTracking, error) {
	phone = digits(phone)
	if orderID <= 0 || phone == "" {
		return OrderTracking{}, NewHTTPError(http.StatusBadRequest, "order id and phone required")
	}

	var t OrderTracking
	hit, err := u.statusCache.Get(ctx, orderID, &t)
	if err != nil {
		u.log.WarnContext(ctx, "status cache get", logger.Traced(ctx), logger.Err(err))
	}
	metric.CacheLookups.WithLabelValues("order_status", hitLabel(hit)).Inc()

	if !hit {
		o, err := u.orders.FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return OrderTracking{}, errNotFound()
		}
		if err != nil {
			return OrderTracking{}, errDB()
		}
		t = OrderTracking{
			OrderID:        o.ID,
			Status:         string(o.Status),
			TrackingNumber: o.TrackingNumber,
			Phone:          digits(o.PhoneNumber),
		}
		if err := u.statusCache.Set(ctx, orderID, t); err != nil {
			u.log.WarnContext(ctx, "status cache set", logger.Traced(ctx), logger.Err(err))
		}
	}

	if t.Phone != phone {
		return OrderTracking{}, errNotFound()
	}
	t.Phone = ""
	return t, nil
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toOrderOutput(o model.Order) OrderOutput {
	return OrderOutput{
		ID:             o.ID,
		ItemType:       string(o.ItemType),
		ItemID:         o.ItemID,
		ItemName:       o.ItemName,
		Quantity:       o.Quantity,
		UnitPrice:      o.UnitPrice,
		Subtotal:       o.Subtotal,
		ShippingCost:   o.ShippingCost,
		TotalAmount:    o.TotalAmount,
		CustomerName:   o.CustomerName,
		PhoneNumber:    o.PhoneNumber,
		Wilaya:         o.Wilaya,
		Commune:        o.Commune,
		Address:        o.Address,
		DeliveryType:   string(o.DeliveryType),
		Status:         string(o.Status),
		ResellerPrice:  o.ResellerPrice,
		ResellLinkID:   o.ResellLinkID,
		SellerID:       o.SellerID,
		SellerName:     o.SellerName,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
	}
}
