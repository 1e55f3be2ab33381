package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/platform/logger"
	"github.com/reelforge/reelforge-api/internal/store"
)

// PostgresPromptStore implements the store.PromptStore interface using a
// PostgreSQL database as the storage backend.
type PostgresPromptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPromptStore creates a new PostgreSQL implementation of the
// PromptStore interface. If logger is nil, a default logger will be used.
func NewPostgresPromptStore(db store.DBTX, logger *slog.Logger) *PostgresPromptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPromptStore{
		db:     db,
		logger: logger.With(slog.String("component", "prompt_store")),
	}
}

// Ensure PostgresPromptStore implements store.PromptStore interface
var _ store.PromptStore = (*PostgresPromptStore)(nil)

// Create implements store.PromptStore.Create
// Two stages generating a prompt for the same fingerprint at once is a
// tolerated race: the insert is a no-op on conflict and the first row wins.
func (s *PostgresPromptStore) Create(ctx context.Context, prompt *domain.Prompt) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO prompts
			(id, fingerprint, product_title, product_description,
			 prompt_text, model_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fingerprint) DO NOTHING
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		prompt.ID,
		prompt.Fingerprint,
		prompt.ProductTitle,
		prompt.ProductDescription,
		prompt.PromptText,
		prompt.ModelUsed,
		prompt.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create prompt",
			slog.String("error", err.Error()),
			slog.String("prompt_id", prompt.ID.String()))
		return MapError(err)
	}

	log.Debug("prompt stored",
		slog.String("prompt_id", prompt.ID.String()),
		slog.String("fingerprint", prompt.Fingerprint))
	return nil
}

// GetByFingerprint implements store.PromptStore.GetByFingerprint
// Returns the newest matching prompt, or store.ErrPromptNotFound.
func (s *PostgresPromptStore) GetByFingerprint(
	ctx context.Context,
	fingerprint string,
) (*domain.Prompt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, fingerprint, product_title, product_description,
		       prompt_text, model_used, created_at
		FROM prompts
		WHERE fingerprint = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	prompt, err := scanPrompt(s.db.QueryRowContext(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPromptNotFound
		}
		log.Error("failed to get prompt by fingerprint",
			slog.String("error", err.Error()),
			slog.String("fingerprint", fingerprint))
		return nil, MapError(err)
	}

	return prompt, nil
}

// GetByID implements store.PromptStore.GetByID
func (s *PostgresPromptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prompt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, fingerprint, product_title, product_description,
		       prompt_text, model_used, created_at
		FROM prompts
		WHERE id = $1
	`

	prompt, err := scanPrompt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPromptNotFound
		}
		log.Error("failed to get prompt by ID",
			slog.String("error", err.Error()),
			slog.String("prompt_id", id.String()))
		return nil, MapError(err)
	}

	return prompt, nil
}

// scanPrompt maps one row onto a domain.Prompt.
func scanPrompt(row rowScanner) (*domain.Prompt, error) {
	var prompt domain.Prompt
	err := row.Scan(
		&prompt.ID,
		&prompt.Fingerprint,
		&prompt.ProductTitle,
		&prompt.ProductDescription,
		&prompt.PromptText,
		&prompt.ModelUsed,
		&prompt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &prompt, nil
}
