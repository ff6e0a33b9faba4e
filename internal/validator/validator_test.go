package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/model"
	"taziri/internal/repository"
	"taziri/internal/usecase"
)

type userRepoMock struct {
	mock.Mock
	repository.UserRepository
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func TestValidateRegister(t *testing.T) {
	users := new(userRepoMock)
	users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{ID: 1}, nil)
	v := NewAuthValidator(users)
	ctx := context.Background()

	require.NoError(t, v.ValidateRegister(ctx, "new@example.com", "password123"))
	assert.ErrorIs(t, v.ValidateRegister(ctx, "not-an-email", "password123"), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateRegister(ctx, "new@example.com", "short"), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateRegister(ctx, "taken@example.com", "password123"), usecase.ErrConflict)
}

func TestValidateLoginAndRefresh(t *testing.T) {
	v := NewAuthValidator(new(userRepoMock))
	ctx := context.Background()

	assert.NoError(t, v.ValidateLogin(ctx, "a@example.com", "x"))
	assert.ErrorIs(t, v.ValidateLogin(ctx, "a@example.com", ""), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateRefresh(ctx, " ", "ua"), usecase.ErrUnauthorized)
	assert.ErrorIs(t, v.ValidateForceLogout(ctx, 0), usecase.ErrValidation)
}

type sample struct {
	Name  string `json:"customer_name" validate:"required"`
	Qty   int    `json:"quantity" validate:"min=1,max=1000"`
	Kind  string `json:"delivery_type" validate:"oneof=home office"`
	Email string `json:"-" validate:"omitempty,email"`
}

func TestRequestValidator(t *testing.T) {
	rv := New()

	require.NoError(t, rv.Validate(sample{Name: "Amina", Qty: 1, Kind: "home"}))

	err := rv.Validate(sample{Qty: 1, Kind: "home"})
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "customer_name is required", he.Message)

	he, _ = usecase.AsHTTPError(rv.Validate(sample{Name: "A", Qty: 0, Kind: "home"}))
	assert.Equal(t, "quantity must be at least 1", he.Message)

	he, _ = usecase.AsHTTPError(rv.Validate(sample{Name: "A", Qty: 1, Kind: "pickup"}))
	assert.Equal(t, "delivery_type must be one of [home office]", he.Message)
}
