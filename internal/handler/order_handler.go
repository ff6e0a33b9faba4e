package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taziri/internal/usecase"
)

const idempotencyHeader = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type QuoteRequest struct {
	ItemType     string `json:"item_type" validate:"required"`
	ItemID       int64  `json:"item_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"min=1,max=1000"`
	ResellSlug   string `json:"resell_slug" validate:"omitempty,len=12,alphanum"`
	Wilaya       string `json:"wilaya" validate:"required,max=100"`
	DeliveryType string `json:"delivery_type" validate:"required"`
}

type CheckoutRequest struct {
	QuoteRequest
	CustomerName string `json:"customer_name" validate:"required,max=255"`
	PhoneNumber  string `json:"phone_number" validate:"required,max=30"`
	Commune      string `json:"commune" validate:"max=255"`
	Address      string `json:"address" validate:"max=1000"`
}

// 冪等キーで同じ注文が返ったときは replayed=true
type CheckoutResponse struct {
	Order    usecase.OrderOutput `json:"order"`
	Replayed bool                `json:"replayed"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	// ゲスト注文なので認証なし
	e.POST("/orders/quote", h.quote)
	e.POST("/orders", h.create)
	e.GET("/orders/:id/status", h.track)

	e.GET("/orders/selling", h.selling, g.Auth...)
}

func (r QuoteRequest) input() usecase.QuoteInput {
	return usecase.QuoteInput{
		ItemType:     r.ItemType,
		ItemID:       r.ItemID,
		Quantity:     r.Quantity,
		ResellSlug:   r.ResellSlug,
		Wilaya:       r.Wilaya,
		DeliveryType: r.DeliveryType,
	}
}

func (h *OrderHandler) quote(c echo.Context) error {
	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Quote(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) create(c echo.Context) error {
	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get(idempotencyHeader)
	if idemKey == "" {
		return badRequest(c, "X-Idempotency-Key header required")
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, replayed, err := h.uc.PlaceOrder(c.Request().Context(), usecase.CheckoutInput{
		QuoteInput:     req.QuoteRequest.input(),
		CustomerName:   req.CustomerName,
		PhoneNumber:    req.PhoneNumber,
		Commune:        req.Commune,
		Address:        req.Address,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	return c.JSON(status, CheckoutResponse{Order: out, Replayed: replayed})
}

// GET /orders/:id/status?phone=
func (h *OrderHandler) track(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.Track(c.Request().Context(), id, c.QueryParam("phone"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) selling(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.ListSelling(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
