package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/domain"
	"github.com/reelforge/reelforge-api/internal/platform/logger"
	"github.com/reelforge/reelforge-api/internal/store"
)

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the
// GenerationStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore interface
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// Create implements store.GenerationStore.Create
// It saves a new generation run, validating the domain record first.
// Re-creating a run for an existing correlation ID is a no-op so a retried
// orchestration job cannot fail on its own earlier success.
func (s *PostgresGenerationStore) Create(ctx context.Context, gen *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := gen.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("correlation_id", gen.CorrelationID.String()))
		return err
	}

	query := `
		INSERT INTO generations
			(correlation_id, email, product_title, product_description,
			 input_image_url, prompt_id, artifact_url, status, failure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (correlation_id) DO NOTHING
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		gen.CorrelationID,
		gen.Email,
		gen.ProductTitle,
		gen.ProductDescription,
		gen.InputImageURL,
		gen.PromptID,
		gen.ArtifactURL,
		gen.Status,
		gen.FailureJSON,
		gen.CreatedAt,
		gen.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("correlation_id", gen.CorrelationID.String()))
		return MapError(err)
	}

	log.Info("generation created",
		slog.String("correlation_id", gen.CorrelationID.String()),
		slog.String("status", string(gen.Status)))
	return nil
}

// GetByCorrelationID implements store.GenerationStore.GetByCorrelationID
// Returns store.ErrGenerationNotFound if no run exists for the ID.
func (s *PostgresGenerationStore) GetByCorrelationID(
	ctx context.Context,
	correlationID uuid.UUID,
) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT correlation_id, email, product_title, product_description,
		       input_image_url, prompt_id, artifact_url, status, failure,
		       created_at, updated_at
		FROM generations
		WHERE correlation_id = $1
	`

	gen, err := scanGeneration(s.db.QueryRowContext(ctx, query, correlationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("generation not found",
				slog.String("correlation_id", correlationID.String()))
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return nil, MapError(err)
	}

	return gen, nil
}

// ListByEmail implements store.GenerationStore.ListByEmail
func (s *PostgresGenerationStore) ListByEmail(
	ctx context.Context,
	email string,
	limit int,
) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT correlation_id, email, product_title, product_description,
		       input_image_url, prompt_id, artifact_url, status, failure,
		       created_at, updated_at
		FROM generations
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, email, limit)
	if err != nil {
		log.Error("failed to list generations by email",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var generations []*domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, MapError(err)
		}
		generations = append(generations, gen)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return generations, nil
}

// UpdateStatus implements store.GenerationStore.UpdateStatus
// The WHERE clause excludes terminal rows, so a transition attempted after
// completion or failure silently affects zero rows.
func (s *PostgresGenerationStore) UpdateStatus(
	ctx context.Context,
	correlationID uuid.UUID,
	status domain.GenerationStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generations
		SET status = $1, updated_at = now()
		WHERE correlation_id = $2
		  AND status NOT IN ('completed', 'failed')
	`

	result, err := s.db.ExecContext(ctx, query, status, correlationID)
	if err != nil {
		log.Error("failed to update generation status",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the run does not exist or it already reached a terminal
		// state. Both are harmless for a late-arriving transition.
		log.Debug("generation status update affected no rows",
			slog.String("correlation_id", correlationID.String()),
			slog.String("status", string(status)))
	}

	return nil
}

// SetPromptID implements store.GenerationStore.SetPromptID
func (s *PostgresGenerationStore) SetPromptID(
	ctx context.Context,
	correlationID, promptID uuid.UUID,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generations
		SET prompt_id = $1, updated_at = now()
		WHERE correlation_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, promptID, correlationID)
	if err != nil {
		log.Error("failed to set generation prompt",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "generation")
}

// Complete implements store.GenerationStore.Complete
func (s *PostgresGenerationStore) Complete(
	ctx context.Context,
	correlationID uuid.UUID,
	artifactURL string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generations
		SET status = 'completed', artifact_url = $1, updated_at = now()
		WHERE correlation_id = $2
		  AND status NOT IN ('completed', 'failed')
	`

	result, err := s.db.ExecContext(ctx, query, artifactURL, correlationID)
	if err != nil {
		log.Error("failed to complete generation",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		log.Info("generation completed",
			slog.String("correlation_id", correlationID.String()))
	}

	return nil
}

// MarkFailed implements store.GenerationStore.MarkFailed
// Stores the serialized failure response alongside the failed status. Runs
// already in a terminal state are left untouched.
func (s *PostgresGenerationStore) MarkFailed(
	ctx context.Context,
	correlationID uuid.UUID,
	failure []byte,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generations
		SET status = 'failed', failure = $1, updated_at = now()
		WHERE correlation_id = $2
		  AND status NOT IN ('completed', 'failed')
	`

	result, err := s.db.ExecContext(ctx, query, failure, correlationID)
	if err != nil {
		log.Error("failed to mark generation failed",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		log.Info("generation marked failed",
			slog.String("correlation_id", correlationID.String()))
	}

	return nil
}

// WithTx implements store.GenerationStore.WithTx
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanGeneration maps one row onto a domain.Generation.
func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var gen domain.Generation
	var status string
	var artifactURL sql.NullString
	var failure []byte

	err := row.Scan(
		&gen.CorrelationID,
		&gen.Email,
		&gen.ProductTitle,
		&gen.ProductDescription,
		&gen.InputImageURL,
		&gen.PromptID,
		&artifactURL,
		&status,
		&failure,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	gen.Status = domain.GenerationStatus(status)
	gen.ArtifactURL = artifactURL.String
	gen.FailureJSON = failure
	return &gen, nil
}
