package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

var _ FastTier = (*MemcachedFast)(nil)

// MemcachedFast is the Memcached-backed fast tier.
type MemcachedFast struct {
	client *memcache.Client
}

// NewMemcachedFast creates a Memcached fast tier for the given address.
func NewMemcachedFast(addr string) *MemcachedFast {
	return &MemcachedFast{client: memcache.New(addr)}
}

// Get retrieves a value by key. Returns ErrCacheMiss if the key doesn't
// exist or has expired.
func (m *MemcachedFast) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	item, err := m.client.Get(key)
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("fast", "get").Inc()
		return nil, fmt.Errorf("memcached get: %w", err)
	}
	CacheOpSeconds.WithLabelValues("fast", "get").Observe(time.Since(start).Seconds())
	return item.Value, nil
}

// Set stores a value with the given TTL.
func (m *MemcachedFast) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	start := time.Now()
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
	if err != nil {
		CacheErrors.WithLabelValues("fast", "set").Inc()
		return fmt.Errorf("memcached set: %w", err)
	}
	CacheOpSeconds.WithLabelValues("fast", "set").Observe(time.Since(start).Seconds())
	return nil
}

// Delete removes a key. A miss is not an error.
func (m *MemcachedFast) Delete(ctx context.Context, key string) error {
	if err := m.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		CacheErrors.WithLabelValues("fast", "delete").Inc()
		return fmt.Errorf("memcached delete: %w", err)
	}
	return nil
}

// Clear flushes all entries. Memcached has no keyspace scan, so this flushes
// the whole instance; the instance is assumed dedicated to this cache.
func (m *MemcachedFast) Clear(ctx context.Context) error {
	if err := m.client.FlushAll(); err != nil {
		CacheErrors.WithLabelValues("fast", "clear").Inc()
		return fmt.Errorf("memcached flush: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (m *MemcachedFast) Ping(ctx context.Context) error {
	return m.client.Ping()
}

// Close closes the Memcached client.
func (m *MemcachedFast) Close() error {
	return m.client.Close()
}
