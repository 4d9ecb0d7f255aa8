package usecase_test

import (
	"context"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
	"farmmarket/internal/usecase"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, page, limit)
	us, _ := args.Get(0).([]model.User)
	total, _ := args.Get(1).(int64)
	return us, total, args.Error(2)
}

func (m *MockUserRepository) ListFarmersWithProducts(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]model.User)
	return us, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var _ repo.UserRepository = (*MockUserRepository)(nil)

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	rt, _ := args.Get(0).(*model.RefreshToken)
	return rt, args.Error(1)
}

func (m *MockRefreshTokenRepository) MarkUsed(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteByID(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}

var _ repo.RefreshTokenRepository = (*MockRefreshTokenRepository)(nil)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, req usecase.AuthRegisterRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, username string, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *MockAuthValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	return m.Called(ctx, refreshToken, userAgent).Error(0)
}

func (m *MockAuthValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	return m.Called(ctx, targetUserID).Error(0)
}

var _ usecase.AuthValidator = (*MockAuthValidator)(nil)
