package middleware

import (
	"errors"
	"net/http"

	"farmmarket/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTのtvとDBのtoken_versionが一致するか確認。
// ロール変更や強制ログアウトでtoken_versionが上がると、古いアクセストークンは使えなくなる。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && user == nil) {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if err != nil {
				zap.L().Error("token version lookup failed", zap.Int64("user_id", userID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			if user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			//停止ユーザー
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
			}

			return next(c)
		}
	}
}
