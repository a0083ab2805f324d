package store

import (
	"context"
	"time"
)

// FastTier is a key/value store with per-entry expiry. Implementations:
// Redis, Memcached, in-process memory.
type FastTier interface {
	// Get returns the stored value, or ErrCacheMiss when the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes one key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this store. Administrative only.
	Clear(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// DurableTier is a key/value store with no expiry; it is the long-term
// record behind the fast tier.
type DurableTier interface {
	// Get returns the stored value, or ErrCacheMiss when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value without expiry, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes one key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries. Administrative only.
	Clear(ctx context.Context) error

	// Close releases the underlying handle.
	Close() error
}
