package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"taziri/internal/usecase"
)

type ProductWriteRequest struct {
	SellerID      *int64           `json:"seller_id"`
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	Category      string           `json:"category" validate:"max=100"`
	ImageURL      string           `json:"image_url" validate:"omitempty,url"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	IsActive      bool             `json:"is_active"`
}

type OfferWriteRequest struct {
	SellerID      *int64           `json:"seller_id"`
	Title         string           `json:"title" validate:"required,max=255"`
	Description   string           `json:"description"`
	ImageURL      string           `json:"image_url" validate:"omitempty,url"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	IsActive      bool             `json:"is_active"`
	EndsAt        *time.Time       `json:"ends_at"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

// /admin/products と /admin/offers をまとめる
type AdminProductHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.CatalogUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	admin := e.Group("/admin", g.Admin...)

	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.POST("/offers", h.createOffer)
	admin.PUT("/offers/:id", h.updateOffer)
	admin.DELETE("/offers/:id", h.deleteOffer)
}

func (r ProductWriteRequest) input() usecase.AdminProductInput {
	return usecase.AdminProductInput{
		SellerID:      r.SellerID,
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		ImageURL:      r.ImageURL,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		IsActive:      r.IsActive,
	}
}

func (r OfferWriteRequest) input() usecase.AdminOfferInput {
	return usecase.AdminOfferInput{
		SellerID:      r.SellerID,
		Title:         r.Title,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		IsActive:      r.IsActive,
		EndsAt:        r.EndsAt,
	}
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req ProductWriteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	id, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, createdResponse{ID: id})
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req ProductWriteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, req.input()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) createOffer(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req OfferWriteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	id, err := h.uc.AdminCreateOffer(c.Request().Context(), adminID, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, createdResponse{ID: id})
}

func (h *AdminProductHandler) updateOffer(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req OfferWriteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.AdminUpdateOffer(c.Request().Context(), adminID, id, req.input()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) deleteOffer(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.AdminDeleteOffer(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
