package handler

import (
	"net/http"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)
	admin.GET("/orders", h.list)
}

// GET /admin/orders?status=&user_id=&from=&to=&page=&limit=
func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, ok := queryPaging(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid paging"})
	}
	userID, ok := queryInt64Ptr(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
	}

	out, err := h.uc.List(c.Request().Context(), actorFrom(c), usecase.AdminOrderListInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
