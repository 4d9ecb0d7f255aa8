package handler

import (
	"net/http"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /orders（購入者）と /farmer/order-items（農家）
type OrderHandler struct {
	orders     *usecase.OrderUsecase
	fulfilment *usecase.FulfilmentUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, fulfilment *usecase.FulfilmentUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, fulfilment: fulfilment}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders", authChain(cfg, userRepo)...)
	g.GET("", h.list)
	g.GET("/:id", h.get)

	f := e.Group("/farmer", authChain(cfg, userRepo, model.RoleFarmer)...)
	f.GET("/order-items", h.farmerItems)
	f.PUT("/order-items/:id/advance", h.advance)
}

func (h *OrderHandler) list(c echo.Context) error {
	page, limit, ok := queryPaging(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid paging"})
	}
	out, err := h.orders.ListMine(c.Request().Context(), actorFrom(c), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.orders.Get(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) farmerItems(c echo.Context) error {
	out, err := h.fulfilment.ListItems(c.Request().Context(), actorFrom(c), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) advance(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.fulfilment.Advance(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
