package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"farmmarket/internal/repository"
	"farmmarket/internal/usecase"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// 登録の入力を検証。重複はErrConflict。
func (v *authValidator) ValidateRegister(ctx context.Context, req usecase.AuthRegisterRequest) error {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := lengthBetween("username", username, 1, 20); err != nil {
		return err
	}
	if err := lengthBetween("first_name", strings.TrimSpace(req.FirstName), 1, 50); err != nil {
		return err
	}
	if err := lengthBetween("last_name", strings.TrimSpace(req.LastName), 1, 50); err != nil {
		return err
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}
	if err := maxLength("phone", strings.TrimSpace(req.Phone), 50); err != nil {
		return err
	}
	if err := maxLength("address", strings.TrimSpace(req.Address), 100); err != nil {
		return err
	}
	if email != "" {
		if err := maxLength("email", email, 50); err != nil {
			return err
		}
		if !isEmailLike(email) {
			return fmt.Errorf("%w: invalid email", usecase.ErrValidation)
		}
	}

	// 重複チェック（DBが必要）
	if u, err := v.users.FindByUsername(ctx, username); err == nil && u != nil {
		return fmt.Errorf("%w: username already used", usecase.ErrConflict)
	}
	if email != "" {
		if u, err := v.users.FindByEmail(ctx, email); err == nil && u != nil {
			return fmt.Errorf("%w: email already used", usecase.ErrConflict)
		}
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, username string, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", usecase.ErrValidation)
	}
	return nil
}

// refresh 入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return fmt.Errorf("%w: refresh token is required", usecase.ErrUnauthorized)
	}
	return nil
}

// 強制ログアウトの入力を検証
func (v *authValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	if targetUserID <= 0 {
		return fmt.Errorf("%w: invalid user id", usecase.ErrValidation)
	}
	return nil
}

// 8..32文字
func validatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < 8 || n > 32 {
		return fmt.Errorf("%w: password must be 8 to 32 characters", usecase.ErrValidation)
	}
	return nil
}

func lengthBetween(field, s string, min, max int) error {
	n := utf8.RuneCountInString(s)
	if n < min {
		return fmt.Errorf("%w: %s is required", usecase.ErrValidation, field)
	}
	if n > max {
		return fmt.Errorf("%w: %s too long", usecase.ErrValidation, field)
	}
	return nil
}

func maxLength(field, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return fmt.Errorf("%w: %s too long", usecase.ErrValidation, field)
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
