package storage

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("storage closed")
)

// Storage is a session-scoped key-value store.
//
// Implementations must be safe for concurrent use. Remove of a missing key
// is not an error.
type Storage interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key.
	Remove(ctx context.Context, key string) error

	// Clear deletes every key.
	Clear(ctx context.Context) error

	// Close releases resources held by the storage.
	Close() error
}
