package syncer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for fetch retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial
	// fetch).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default fetch retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryWithBackoff executes fn with exponential backoff. Only transient
// errors (see IsTransient) are retried; everything else returns immediately.
// Jitter prevents synchronized retries across concurrent coordinators.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return lastErr
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		fetchRetriesTotal.Inc()

		// ±20% jitter.
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch cancelled during backoff: %w", ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
