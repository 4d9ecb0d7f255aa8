package handler

import (
	"net/http"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuditLogHandler struct {
	uc *usecase.AuditLogUsecase
}

func NewAuditLogHandler(uc *usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{uc: uc}
}

func (h *AuditLogHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)
	admin.GET("/audit-logs", h.list)
}

// GET /admin/audit-logs?actor_user_id=&action=&resource_type=&resource_id=&from=&to=&page=&limit=
func (h *AuditLogHandler) list(c echo.Context) error {
	page, limit, ok := queryPaging(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid paging"})
	}
	actorID, ok := queryInt64Ptr(c, "actor_user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid actor_user_id"})
	}
	resID, ok := queryInt64Ptr(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
	}

	out, err := h.uc.List(c.Request().Context(), actorFrom(c), usecase.AuditLogListInput{
		ActorUserID:  actorID,
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   resID,
		From:         c.QueryParam("from"),
		To:           c.QueryParam("to"),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
