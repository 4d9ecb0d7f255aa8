package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/middleware"
	"farmmarket/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, page, limit)
	us, _ := args.Get(0).([]model.User)
	return us, int64(args.Int(1)), args.Error(2)
}

func (m *mockUserRepo) ListFarmersWithProducts(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]model.User)
	return us, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) IncrementTokenVersion(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func mustMakeJWT(t *testing.T, secret string, sub int64, role string, tv int, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"tv":   tv,
		"iat":  1,
		"exp":  9999999999,
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r.Error
}

func okHandler(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(model.Role)
	tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: string(role), TokenVersion: tv})
}

func TestAuthJWT_Rejects(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty bearer", "Bearer "},
		{"bad signature", "Bearer " + mustMakeJWT(t, "wrong-secret", 1, "USER", 0, jwt.SigningMethodHS256)},
		{"wrong alg", "Bearer " + mustMakeJWT(t, cfg.JWTSecret, 1, "USER", 0, jwt.SigningMethodHS512)},
		{"unknown role", "Bearer " + mustMakeJWT(t, cfg.JWTSecret, 1, "ROOT", 0, jwt.SigningMethodHS256)},
		{"zero sub", "Bearer " + mustMakeJWT(t, cfg.JWTSecret, 0, "USER", 0, jwt.SigningMethodHS256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

			rec := runRequest(t, e, "/protected", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeError(t, rec))
		})
	}
}

func TestAuthJWT_SetsContext(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	raw := mustMakeJWT(t, cfg.JWTSecret, 123, "FARMER", 7, jwt.SigningMethodHS256)
	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, mwOKResponse{UserID: 123, Role: "FARMER", TokenVersion: 7}, body)
}

func TestTokenVersionGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}

	tests := []struct {
		name     string
		user     *model.User
		findErr  error
		wantCode int
	}{
		{"match", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 5, IsActive: true}, nil, http.StatusOK},
		{"mismatch", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 6, IsActive: true}, nil, http.StatusUnauthorized},
		{"inactive", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 5}, nil, http.StatusForbidden},
		{"deleted user", nil, repository.ErrNotFound, http.StatusUnauthorized},
		{"db down", nil, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mockUserRepo)
			users.On("FindByID", mock.Anything, int64(1)).Return(tt.user, tt.findErr)

			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(users))

			raw := mustMakeJWT(t, cfg.JWTSecret, 1, "USER", 5, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/protected", "Bearer "+raw)
			assert.Equal(t, tt.wantCode, rec.Code)
			users.AssertExpectations(t)
		})
	}
}

func TestTokenVersionGuard_MissingContext(t *testing.T) {
	users := new(mockUserRepo)
	e := echo.New()
	e.GET("/protected", okHandler, middleware.TokenVersionGuard(users))

	rec := runRequest(t, e, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestRoleGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}

	tests := []struct {
		role     string
		wantCode int
	}{
		{"MODERATOR", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"FARMER", http.StatusForbidden},
		{"USER", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			e := echo.New()
			e.GET("/moderation", okHandler,
				middleware.AuthJWT(cfg),
				middleware.RoleGuard(model.RoleModerator, model.RoleAdmin))

			raw := mustMakeJWT(t, cfg.JWTSecret, 9, tt.role, 0, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/moderation", "Bearer "+raw)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRoleGuard_NoRoleInContext(t *testing.T) {
	e := echo.New()
	e.GET("/admin", okHandler, middleware.RoleGuard(model.RoleAdmin))

	rec := runRequest(t, e, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestLogger(zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusTeapot, "pong")
	})

	rec := runRequest(t, e, "/ping", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}
