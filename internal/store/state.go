package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StateStore is the shared state store that hands intermediate pipeline
// payloads between stages. Entries are keyed by correlation ID and carry a
// bounded time-to-live; expiry is the only automatic cutoff for a run.
type StateStore interface {
	// Put serializes and stores the payload under the correlation ID,
	// overwriting any prior value (last write wins) and resetting the TTL.
	Put(ctx context.Context, correlationID uuid.UUID, payload []byte, ttl time.Duration) error

	// Get returns the stored payload, or ErrStateNotFound when the entry
	// is absent or its TTL has elapsed.
	Get(ctx context.Context, correlationID uuid.UUID) ([]byte, error)

	// Delete removes the entry for the correlation ID. Deleting a missing
	// entry is not an error.
	Delete(ctx context.Context, correlationID uuid.UUID) error

	// PurgeExpired deletes entries whose TTL has elapsed and returns how
	// many were removed. Called periodically by the runner's monitor loop.
	PurgeExpired(ctx context.Context) (int64, error)
}
