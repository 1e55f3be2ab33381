package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
)

// GenerationStore defines the interface for persisting generation runs.
// All write operations have upsert or guarded-update semantics so that a
// retried job re-invoking them is harmless.
type GenerationStore interface {
	// Create persists a new generation run. Creating a run that already
	// exists for the same correlation ID is a no-op, keeping the
	// orchestration job idempotent across retries.
	Create(ctx context.Context, gen *domain.Generation) error

	// GetByCorrelationID retrieves a generation run by its correlation ID.
	// Returns ErrGenerationNotFound when absent.
	GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*domain.Generation, error)

	// ListByEmail returns the most recent runs submitted by the given
	// email, newest first, up to limit.
	ListByEmail(ctx context.Context, email string, limit int) ([]*domain.Generation, error)

	// UpdateStatus transitions a run to the given status. Transitions out
	// of terminal states are silently ignored (guarded in SQL), so a
	// late-arriving retry cannot resurrect a completed or failed run.
	UpdateStatus(ctx context.Context, correlationID uuid.UUID, status domain.GenerationStatus) error

	// SetPromptID records the prompt used for the run.
	SetPromptID(ctx context.Context, correlationID, promptID uuid.UUID) error

	// Complete records the artifact URL and transitions the run to
	// completed in one statement.
	Complete(ctx context.Context, correlationID uuid.UUID, artifactURL string) error

	// MarkFailed transitions the run to failed and stores the serialized
	// failure response for the status surface. Terminal runs are left
	// untouched.
	MarkFailed(ctx context.Context, correlationID uuid.UUID, failure []byte) error

	// WithTx returns a new GenerationStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) GenerationStore
}
