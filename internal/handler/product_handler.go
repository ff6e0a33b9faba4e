package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"taziri/internal/usecase"
)

// /products と /offers の公開API
type ProductHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.listProducts)
	e.GET("/products/:id", h.productDetail)
	e.GET("/offers", h.listOffers)
	e.GET("/offers/:id", h.offerDetail)
}

func (h *ProductHandler) listProducts(c echo.Context) error {
	in, err := listingQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) listOffers(c echo.Context) error {
	in, err := listingQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListPublicOffers(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) productDetail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) offerDetail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	o, err := h.uc.GetOfferDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// page（default 1）, limit（default 20）, q, category, min_price, max_price, sort
func listingQuery(c echo.Context) (usecase.ListListingsInput, error) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return usecase.ListListingsInput{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return usecase.ListListingsInput{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	in := usecase.ListListingsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Sort:     c.QueryParam("sort"),
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_price", &in.MinPrice}, {"max_price", &in.MaxPrice}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return usecase.ListListingsInput{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+p.name)
		}
		*p.dst = &d
	}
	return in, nil
}
