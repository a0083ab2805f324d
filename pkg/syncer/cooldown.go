package syncer

import (
	"sync"
	"time"
)

// cooldownGate blocks repeated fetches against an upstream that just
// failed. After a fetch failure the cache key enters a cooldown window;
// requests arriving inside the window are served from cache without
// touching the upstream again.
type cooldownGate struct {
	mu     sync.Mutex
	until  map[string]time.Time
	period time.Duration
}

// newCooldownGate creates a gate with the given cooldown period.
// A zero period disables gating.
func newCooldownGate(period time.Duration) *cooldownGate {
	return &cooldownGate{
		until:  make(map[string]time.Time),
		period: period,
	}
}

// blocked reports whether the key is inside its cooldown window.
// Expired windows are removed on check.
func (g *cooldownGate) blocked(key string) bool {
	if g.period <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	deadline, ok := g.until[key]
	if !ok {
		return false
	}
	if time.Now().After(deadline) {
		delete(g.until, key)
		return false
	}
	return true
}

// recordFailure starts (or restarts) the cooldown window for the key.
func (g *cooldownGate) recordFailure(key string) {
	if g.period <= 0 {
		return
	}
	g.mu.Lock()
	g.until[key] = time.Now().Add(g.period)
	g.mu.Unlock()
}
