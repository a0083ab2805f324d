package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the coordinator.
var (
	// ErrUnknownDomain is returned when a request names a domain that was
	// never registered.
	ErrUnknownDomain = errors.New("unknown domain")

	// ErrUpstreamUnavailable marks a fetch failure as transient. Fetchers
	// wrap connectivity and throttling failures with it to opt in to retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrCooldown is returned on the cold path when the domain is inside a
	// failure cooldown window and no cached data exists to fall back on.
	ErrCooldown = errors.New("domain in failure cooldown")

	// ErrRetryExhausted is returned when all fetch retry attempts are
	// exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// FetchError reports a failed upstream fetch with its window context.
// On a warm cache it is recovered locally (the cached data is served); it
// only propagates when there is no cached data at all.
type FetchError struct {
	Domain string
	Start  time.Time
	End    time.Time
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s [%s, %s]: %v",
		e.Domain, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a fetch error is worth retrying: upstream
// unavailability and timeouts are, everything else (bad parameters, parse
// failures in the fetcher) is not.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
