package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ FastTier = (*RedisFast)(nil)

// RedisFast is the Redis-backed fast tier.
type RedisFast struct {
	client *redis.Client
}

// NewRedisFast creates a Redis fast tier.
func NewRedisFast(client *redis.Client) *RedisFast {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisFast{client: client}
}

// Get retrieves a value by key. Returns ErrCacheMiss if the key doesn't
// exist; expiry is handled by Redis itself.
func (r *RedisFast) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("fast", "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}
	CacheOpSeconds.WithLabelValues("fast", "get").Observe(time.Since(start).Seconds())
	return data, nil
}

// Set stores a value with the given TTL.
func (r *RedisFast) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	start := time.Now()
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("fast", "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	CacheOpSeconds.WithLabelValues("fast", "set").Observe(time.Since(start).Seconds())
	return nil
}

// Delete removes a key.
func (r *RedisFast) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues("fast", "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every key under the "series:" prefix. It scans rather than
// flushing the whole database because the Redis instance may be shared.
func (r *RedisFast) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, "series:*", 100).Result()
		if err != nil {
			CacheErrors.WithLabelValues("fast", "clear").Inc()
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				CacheErrors.WithLabelValues("fast", "clear").Inc()
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks connectivity.
func (r *RedisFast) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisFast) Close() error {
	return r.client.Close()
}
