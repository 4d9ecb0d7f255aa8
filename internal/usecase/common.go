package usecase

import (
	"context"
	"net/http"

	"farmmarket/internal/domain/model"
)

// 操作するユーザー（JWTから）
type Actor struct {
	ID   int64
	Role model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// モデレーターと管理者
func (a Actor) CanModerate() bool {
	return a.Role == model.RoleModerator || a.Role == model.RoleAdmin
}

func (a Actor) valid() bool { return a.ID > 0 && a.Role.IsValid() }

func requireActor(a Actor) error {
	if !a.valid() {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return nil
}

// ロールのどれかに当てはまるか
func requireRole(a Actor, roles ...model.Role) error {
	if err := requireActor(a); err != nil {
		return err
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return NewHTTPError(http.StatusForbidden, "forbidden")
}

// page >= 1, 1 <= limit <= 100
func checkPaging(page, limit int) error {
	if page < 1 {
		return NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return nil
}

// キャッシュ（redis / no-op）
type Cache interface {
	Get(ctx context.Context, ns, key string, dst any) (bool, error)
	Set(ctx context.Context, ns, key string, v any) error
	Invalidate(ctx context.Context, ns string) error
}

const (
	cacheNSCategories = "categories"
	cacheNSSchema     = "schema"
)

type PageOutput struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
