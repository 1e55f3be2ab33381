package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
)

// PromptStore defines the interface for the prompt reuse index.
type PromptStore interface {
	// Create persists a generated prompt. Concurrent writers for the same
	// fingerprint are tolerated: the insert is a no-op on conflict and the
	// existing row wins, which at worst wastes one provider call.
	Create(ctx context.Context, prompt *domain.Prompt) error

	// GetByFingerprint returns the newest prompt matching the fingerprint,
	// or ErrPromptNotFound.
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Prompt, error)

	// GetByID retrieves a prompt by its ID, or ErrPromptNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Prompt, error)
}
