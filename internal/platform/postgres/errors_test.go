package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil error stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("sql.ErrNoRows maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()

		mapped := MapError(sql.ErrNoRows)
		assert.ErrorIs(t, mapped, store.ErrNotFound)
	})

	t.Run("unique violation maps to ErrDuplicate", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "prompts_fingerprint_key"}
		mapped := MapError(pgErr)
		assert.ErrorIs(t, mapped, store.ErrDuplicate)
	})

	t.Run("foreign key violation maps to ErrInvalidEntity", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "generations_prompt_id_fkey"}
		mapped := MapError(pgErr)
		assert.ErrorIs(t, mapped, store.ErrInvalidEntity)
		assert.Contains(t, mapped.Error(), "generations_prompt_id_fkey")
	})

	t.Run("check violation maps to ErrInvalidEntity", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "generations_status_check"}
		assert.ErrorIs(t, MapError(pgErr), store.ErrInvalidEntity)
	})

	t.Run("not null violation maps to ErrInvalidEntity", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: notNullViolationCode, ColumnName: "email"}
		mapped := MapError(pgErr)
		assert.ErrorIs(t, mapped, store.ErrInvalidEntity)
		assert.Contains(t, mapped.Error(), "email")
	})

	t.Run("unmapped errors pass through", func(t *testing.T) {
		t.Parallel()

		original := errors.New("connection refused")
		assert.Equal(t, original, MapError(original))
	})

	t.Run("wrapped pg errors are still detected", func(t *testing.T) {
		t.Parallel()

		wrapped := fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: uniqueViolationCode})
		assert.ErrorIs(t, MapError(wrapped), store.ErrDuplicate)
	})
}

func TestViolationHelpers(t *testing.T) {
	t.Parallel()

	uniqueErr := &pgconn.PgError{Code: uniqueViolationCode}
	fkErr := &pgconn.PgError{Code: foreignKeyViolationCode}

	assert.True(t, IsUniqueViolation(uniqueErr))
	assert.False(t, IsUniqueViolation(fkErr))
	assert.True(t, IsForeignKeyViolation(fkErr))
	assert.False(t, IsForeignKeyViolation(uniqueErr))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrGenerationNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("lookup: %w", store.ErrNotFound)))
	assert.False(t, IsNotFoundError(errors.New("boom")))
}

// fakeResult implements sql.Result for CheckRowsAffected tests.
type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	t.Run("rows affected passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "generation"))
	})

	t.Run("zero rows yields ErrNotFound with entity name", func(t *testing.T) {
		t.Parallel()

		err := CheckRowsAffected(fakeResult{rows: 0}, "generation")
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Contains(t, err.Error(), "generation")
	})

	t.Run("zero rows without entity name", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, ""), store.ErrNotFound)
	})

	t.Run("nil result errors", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, CheckRowsAffected(nil, "generation"))
	})

	t.Run("rows affected error propagates", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, CheckRowsAffected(fakeResult{err: errors.New("driver")}, "generation"))
	})
}
