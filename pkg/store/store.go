package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketkit/syncache/pkg/logging"
)

var (
	// ErrCacheMiss indicates the requested key was not found in any tier.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored envelope could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// TierError reports a failed operation against one tier.
type TierError struct {
	Tier string // "fast" or "durable"
	Op   string // "get", "set", "delete", "clear"
	Err  error
}

// Error implements the error interface.
func (e *TierError) Error() string {
	return fmt.Sprintf("%s tier %s: %v", e.Tier, e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TierError) Unwrap() error {
	return e.Err
}

// DefaultBackfillTTL is the fast-tier TTL applied when an entry is promoted
// from the durable tier on a fast-tier miss.
const DefaultBackfillTTL = 30 * time.Minute

// Tiered composes a fast tier and a durable tier behind one get/set surface.
type Tiered struct {
	fast        FastTier
	durable     DurableTier
	backfillTTL time.Duration
	logger      zerolog.Logger
}

// TieredOption configures a Tiered store.
type TieredOption func(*Tiered)

// WithBackfillTTL overrides the fast-tier TTL used for durable-tier
// promotions.
func WithBackfillTTL(ttl time.Duration) TieredOption {
	return func(t *Tiered) {
		t.backfillTTL = ttl
	}
}

// NewTiered creates a two-tier store. Both tiers are required; use the
// memory implementations when an external engine is not available.
func NewTiered(fast FastTier, durable DurableTier, opts ...TieredOption) *Tiered {
	if fast == nil {
		panic("fast tier cannot be nil")
	}
	if durable == nil {
		panic("durable tier cannot be nil")
	}
	t := &Tiered{
		fast:        fast,
		durable:     durable,
		backfillTTL: DefaultBackfillTTL,
		logger:      logging.NewLogger("store"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get retrieves an entry: fast tier first, then durable. On a durable hit
// the fast tier is backfilled with the default TTL. A fast-tier failure
// degrades to durable-only and never fails the read.
//
// Returns ErrCacheMiss when neither tier has the key.
func (t *Tiered) Get(ctx context.Context, key CacheKey) (*Entry, error) {
	cacheKey := key.String()

	data, err := t.fast.Get(ctx, cacheKey)
	switch {
	case err == nil:
		entry, decErr := decodeEntry(data)
		if decErr != nil {
			// Corrupt fast-tier entry: drop it and fall through to durable.
			t.logger.Warn().Err(decErr).Str("key", cacheKey).Msg("Dropping corrupt fast-tier entry")
			_ = t.fast.Delete(ctx, cacheKey)
		} else {
			CacheHits.WithLabelValues("fast").Inc()
			return entry, nil
		}
	case errors.Is(err, ErrCacheMiss):
		CacheMisses.WithLabelValues("fast").Inc()
	default:
		// Connectivity failure: degrade to durable-tier-only.
		t.logger.Warn().Err(err).Str("key", cacheKey).Msg("Fast tier unavailable, degrading to durable tier")
	}

	data, err = t.durable.Get(ctx, cacheKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.WithLabelValues("durable").Inc()
			return nil, ErrCacheMiss
		}
		return nil, &TierError{Tier: "durable", Op: "get", Err: err}
	}

	entry, decErr := decodeEntry(data)
	if decErr != nil {
		return nil, decErr
	}
	CacheHits.WithLabelValues("durable").Inc()

	// Promote so the next read is a fast-tier hit.
	if err := t.fast.Set(ctx, cacheKey, data, t.backfillTTL); err != nil {
		t.logger.Warn().Err(err).Str("key", cacheKey).Msg("Fast tier backfill failed")
	} else {
		t.logger.Debug().
			Str("key", cacheKey).
			Dur("ttl", t.backfillTTL).
			Msg("Backfilled fast tier from durable tier")
	}

	return entry, nil
}

// Set writes the payload to both tiers: the fast tier with the given TTL,
// the durable tier without expiry. A fast-tier failure is logged and
// swallowed. A durable-tier failure is returned as a *TierError but does
// not undo the fast-tier write.
func (t *Tiered) Set(ctx context.Context, key CacheKey, payload []byte, ttl time.Duration) error {
	cacheKey := key.String()

	data, err := json.Marshal(&Entry{Payload: payload, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := t.fast.Set(ctx, cacheKey, data, ttl); err != nil {
		t.logger.Warn().Err(err).Str("key", cacheKey).Msg("Fast tier write failed")
	}

	if err := t.durable.Set(ctx, cacheKey, data); err != nil {
		return &TierError{Tier: "durable", Op: "set", Err: err}
	}

	return nil
}

// Invalidate removes the key from both tiers.
func (t *Tiered) Invalidate(ctx context.Context, key CacheKey) error {
	cacheKey := key.String()
	var errs []error
	if err := t.fast.Delete(ctx, cacheKey); err != nil {
		errs = append(errs, &TierError{Tier: "fast", Op: "delete", Err: err})
	}
	if err := t.durable.Delete(ctx, cacheKey); err != nil {
		errs = append(errs, &TierError{Tier: "durable", Op: "delete", Err: err})
	}
	return errors.Join(errs...)
}

// Clear removes all entries from both tiers. Administrative only; it must
// not be reachable from the hot query path.
func (t *Tiered) Clear(ctx context.Context) error {
	var errs []error
	if err := t.fast.Clear(ctx); err != nil {
		errs = append(errs, &TierError{Tier: "fast", Op: "clear", Err: err})
	}
	if err := t.durable.Clear(ctx); err != nil {
		errs = append(errs, &TierError{Tier: "durable", Op: "clear", Err: err})
	}
	return errors.Join(errs...)
}

// Close closes both tiers.
func (t *Tiered) Close() error {
	var errs []error
	if err := t.fast.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.durable.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func decodeEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
