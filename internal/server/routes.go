package server

import (
	"farmmarket/internal/config"
	"farmmarket/internal/handler"
	"farmmarket/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers はルートを持つハンドラ一式
type Handlers struct {
	Auth           *handler.AuthHandler
	User           *handler.UserHandler
	AdminUser      *handler.AdminUserHandler
	Category       *handler.CategoryHandler
	Attribute      *handler.AttributeHandler
	Product        *handler.ProductHandler
	Cart           *handler.CartHandler
	Order          *handler.OrderHandler
	AdminOrder     *handler.AdminOrderHandler
	Review         *handler.ReviewHandler
	SelfHarvesting *handler.SelfHarvestingHandler
	AuditLog       *handler.AuditLogHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.User.RegisterRoutes(e, cfg, userRepo)
	h.AdminUser.RegisterRoutes(e)
	h.Category.RegisterRoutes(e, cfg, userRepo)
	h.Attribute.RegisterRoutes(e, cfg, userRepo)
	h.Product.RegisterRoutes(e, cfg, userRepo)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.Review.RegisterRoutes(e, cfg, userRepo)
	h.SelfHarvesting.RegisterRoutes(e, cfg, userRepo)
	h.AuditLog.RegisterRoutes(e, cfg, userRepo)
}
