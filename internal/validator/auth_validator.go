package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"taziri/internal/repository"
	"taziri/internal/usecase"
)

type authValidator struct {
	users repository.UserRepository
	v     *validator.Validate
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users, v: validator.New()}
}

// サインアップの入力を検証
func (a *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)
	if err := a.v.Var(email, "required,email,max=255"); err != nil {
		return fmt.Errorf("%w: invalid email", usecase.ErrValidation)
	}

	// bcryptは72バイトまでしか見ない
	if err := a.v.Var(password, "required,min=8,max=72"); err != nil {
		return fmt.Errorf("%w: password must be 8-72 characters", usecase.ErrValidation)
	}

	// email重複チェック（DBが必要）
	u, err := a.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.ErrConflict
	}
	return nil
}

// ログインの入力を検証
func (a *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if err := a.v.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email", usecase.ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", usecase.ErrValidation)
	}
	return nil
}

// refresh 入力を検証
func (a *authValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return usecase.ErrUnauthorized
	}
	return nil
}

// 強制ログアウトの入力を検証
func (a *authValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	if targetUserID <= 0 {
		return fmt.Errorf("%w: invalid user_id", usecase.ErrValidation)
	}
	return nil
}
