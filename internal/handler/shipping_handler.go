package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taziri/internal/domain/shipping"
)

// 料金表は固定なのでusecaseを挟まない
type ShippingHandler struct{}

func NewShippingHandler() *ShippingHandler {
	return &ShippingHandler{}
}

func (h *ShippingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/shipping/wilayas", h.wilayas)
	e.GET("/shipping/rates", h.rates)
}

func (h *ShippingHandler) wilayas(c echo.Context) error {
	return c.JSON(http.StatusOK, shipping.List())
}

// GET /shipping/rates?wilaya=&delivery_type=home|stopDesk
func (h *ShippingHandler) rates(c echo.Context) error {
	region := c.QueryParam("wilaya")
	if region == "" {
		return badRequest(c, "wilaya required")
	}
	mode := shipping.Mode(c.QueryParam("delivery_type"))
	switch mode {
	case "":
		mode = shipping.ModeHome
	case shipping.ModeHome, shipping.ModeStopDesk:
	default:
		return badRequest(c, "invalid delivery_type")
	}
	return c.JSON(http.StatusOK, shipping.Lookup(region, mode))
}
