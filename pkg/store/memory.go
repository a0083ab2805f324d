package store

import (
	"context"
	"sync"
	"time"
)

var (
	_ FastTier    = (*MemoryFast)(nil)
	_ DurableTier = (*MemoryDurable)(nil)
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryFast is an in-process fast tier. It backs unit tests and serves as a
// last-resort fallback when no external fast tier is configured.
type MemoryFast struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

// NewMemoryFast creates an empty in-process fast tier.
func NewMemoryFast() *MemoryFast {
	return &MemoryFast{items: make(map[string]memoryItem)}
}

// Get returns the value, or ErrCacheMiss when absent or expired.
// Expired entries are removed lazily on read.
func (m *MemoryFast) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return item.value, nil
}

// Set stores the value with the given TTL.
func (m *MemoryFast) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.items[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete removes one key.
func (m *MemoryFast) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (m *MemoryFast) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *MemoryFast) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryFast) Close() error {
	return nil
}

// MemoryDurable is an in-process durable tier for unit tests.
type MemoryDurable struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryDurable creates an empty in-process durable tier.
func NewMemoryDurable() *MemoryDurable {
	return &MemoryDurable{items: make(map[string][]byte)}
}

// Get returns the value, or ErrCacheMiss when absent.
func (m *MemoryDurable) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

// Set stores the value without expiry.
func (m *MemoryDurable) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
	return nil
}

// Delete removes one key.
func (m *MemoryDurable) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (m *MemoryDurable) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.items = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryDurable) Close() error {
	return nil
}
