package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. For the state store this also covers entries whose TTL has
	// elapsed.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for
	// example because the entity does not exist or the update violates
	// constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrGenerationNotFound indicates that the requested generation run
	// does not exist in the store.
	ErrGenerationNotFound = fmt.Errorf("%w: generation", ErrNotFound)

	// ErrPromptNotFound indicates that no prompt exists for the requested
	// fingerprint or ID.
	ErrPromptNotFound = fmt.Errorf("%w: prompt", ErrNotFound)

	// ErrStateNotFound indicates that the shared state entry for a
	// correlation ID is absent or has expired.
	ErrStateNotFound = fmt.Errorf("%w: pipeline state", ErrNotFound)
)

// IsNotFound checks if the error is any kind of "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
