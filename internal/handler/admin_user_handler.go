package handler

import (
	"net/http"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	auth     *usecase.AuthUsecase
	users    *usecase.UserUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, auth *usecase.AuthUsecase, users *usecase.UserUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, auth: auth, users: users}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group("/admin", authChain(h.cfg, h.userRepo, model.RoleAdmin)...)

	admin.POST("/users", h.Create)
	admin.POST("/users/:id/force-logout", h.ForceLogout)
}

func (h *AdminUserHandler) Create(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	out, err := h.users.AdminCreate(c.Request().Context(), actorFrom(c), usecase.AdminCreateUserInput{AuthRegisterRequest: req})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
	}

	res, err := h.auth.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
