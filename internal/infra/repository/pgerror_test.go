package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	repo "taziri/internal/repository"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), repo.ErrNotFound)
	assert.ErrorIs(t, translateError(fmt.Errorf("wrap: %w", gorm.ErrRecordNotFound)), repo.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idx_resell_links_slug"}
	err := translateError(fmt.Errorf("insert: %w", dup))
	assert.ErrorIs(t, err, repo.ErrConflict)
	assert.Contains(t, err.Error(), "idx_resell_links_slug")

	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), repo.ErrConflict)

	other := &pgconn.PgError{Code: "23503"}
	assert.NotErrorIs(t, translateError(other), repo.ErrConflict)

	boom := errors.New("boom")
	assert.Equal(t, boom, translateError(boom))
}
