package handler

import (
	"net/http"
	"strconv"
	"strings"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/middleware"
	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// usecaseのHTTPErrorをそのまま返す。それ以外は500。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	zap.L().Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// JWT必須 + token_version一致（+ ロール）
func authChain(cfg config.Config, userRepo repository.UserRepository, roles ...model.Role) []echo.MiddlewareFunc {
	mws := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	}
	if len(roles) > 0 {
		mws = append(mws, middleware.RoleGuard(roles...))
	}
	return mws
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// AuthJWTが入れた値からActorを作る（未認証ならゼロ値）
func actorFrom(c echo.Context) usecase.Actor {
	id, _ := getUserIDFromContext(c)
	role, _ := c.Get(middleware.CtxUserRoleKey).(model.Role)
	return usecase.Actor{ID: id, Role: role}
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空ならdef
func queryInt(c echo.Context, name string, def int) (int, bool) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// 空ならnil
func queryInt64Ptr(c echo.Context, name string) (*int64, bool) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return nil, false
	}
	return &n, true
}

func queryPaging(c echo.Context) (int, int, bool) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return 0, 0, false
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return 0, 0, false
	}
	return page, limit, true
}
