package server

import (
	"github.com/labstack/echo/v4"

	"taziri/internal/handler"
)

// Handlers は公開する全ハンドラ
type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminUser    *handler.AdminUserHandler
	Resell       *handler.ResellHandler
	Shipping     *handler.ShippingHandler
	Notification *handler.NotificationHandler
	Chat         *handler.ChatHandler
	Upload       *handler.UploadHandler
}

func RegisterRoutes(e *echo.Echo, g handler.Guards, h Handlers) {
	h.Auth.RegisterRoutes(e, g)
	h.Product.RegisterRoutes(e)
	h.Shipping.RegisterRoutes(e)
	h.Resell.RegisterRoutes(e, g)
	h.Order.RegisterRoutes(e, g)
	h.Notification.RegisterRoutes(e, g)
	h.Chat.RegisterRoutes(e, g)

	h.AdminProduct.RegisterRoutes(e, g)
	h.AdminOrder.RegisterRoutes(e, g)
	h.AdminUser.RegisterRoutes(e, g)
	h.Upload.RegisterRoutes(e, g)
}
