package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-api/internal/platform/logger"
	"github.com/reelforge/reelforge-api/internal/store"
)

// PostgresStateStore implements the store.StateStore interface using a
// PostgreSQL table as a TTL key-value store. Entries hand intermediate
// pipeline payloads between stages, keyed by correlation ID.
type PostgresStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStateStore creates a new PostgreSQL implementation of the
// StateStore interface. If logger is nil, a default logger will be used.
func NewPostgresStateStore(db store.DBTX, logger *slog.Logger) *PostgresStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "state_store")),
	}
}

// Ensure PostgresStateStore implements store.StateStore interface
var _ store.StateStore = (*PostgresStateStore)(nil)

// Put implements store.StateStore.Put
// Last write wins: an existing entry is overwritten and its TTL reset.
func (s *PostgresStateStore) Put(
	ctx context.Context,
	correlationID uuid.UUID,
	payload []byte,
	ttl time.Duration,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		INSERT INTO pipeline_state (correlation_id, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (correlation_id)
		DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query, correlationID, payload, now, now.Add(ttl))
	if err != nil {
		log.Error("failed to store pipeline state",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return MapError(err)
	}

	return nil
}

// Get implements store.StateStore.Get
// Expired entries are treated as absent even before the purge loop removes
// them, so a run whose TTL elapsed sees store.ErrStateNotFound.
func (s *PostgresStateStore) Get(ctx context.Context, correlationID uuid.UUID) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT payload
		FROM pipeline_state
		WHERE correlation_id = $1
		  AND expires_at > now()
	`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, correlationID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStateNotFound
		}
		log.Error("failed to get pipeline state",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return nil, MapError(err)
	}

	return payload, nil
}

// Delete implements store.StateStore.Delete
func (s *PostgresStateStore) Delete(ctx context.Context, correlationID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM pipeline_state WHERE correlation_id = $1`
	if _, err := s.db.ExecContext(ctx, query, correlationID); err != nil {
		log.Error("failed to delete pipeline state",
			slog.String("error", err.Error()),
			slog.String("correlation_id", correlationID.String()))
		return MapError(err)
	}

	return nil
}

// PurgeExpired implements store.StateStore.PurgeExpired
func (s *PostgresStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM pipeline_state WHERE expires_at <= now()`
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		log.Error("failed to purge expired pipeline state",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	return purged, nil
}
