package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketkit/syncache/pkg/calendar"
	"github.com/marketkit/syncache/pkg/logging"
	"github.com/marketkit/syncache/pkg/recordset"
	"github.com/marketkit/syncache/pkg/store"
)

// Fetcher retrieves upstream data for one window. Implementations must
// return a typed error on genuine upstream failure (wrapping
// ErrUpstreamUnavailable when transient) and an empty, non-nil RecordSet
// when the window legitimately has no data.
type Fetcher func(ctx context.Context, start, end time.Time, freq calendar.Frequency, params map[string]string) (*recordset.RecordSet, error)

// TradingDayOracle returns the latest known trading day. It must be cheap
// enough to call once per request; callers are expected to cache the value
// upstream of the coordinator.
type TradingDayOracle func(ctx context.Context) (time.Time, error)

// FreshnessClass selects the fast-tier TTL band for a data domain. It is a
// property of the domain, not of the individual request.
type FreshnessClass string

const (
	// FreshnessRealTime is for quote-like data that goes stale in minutes.
	FreshnessRealTime FreshnessClass = "realtime"

	// FreshnessIntraday is for intraday series refreshed within the session.
	FreshnessIntraday FreshnessClass = "intraday"

	// FreshnessEndOfDay is for end-of-day series.
	FreshnessEndOfDay FreshnessClass = "eod"

	// FreshnessSlow is for slow-changing series (positions, statistics).
	FreshnessSlow FreshnessClass = "slow"
)

// TTL returns the fast-tier TTL for the class. Unknown classes get the
// end-of-day band.
func (c FreshnessClass) TTL() time.Duration {
	switch c {
	case FreshnessRealTime:
		return 5 * time.Minute
	case FreshnessIntraday:
		return 30 * time.Minute
	case FreshnessEndOfDay:
		return time.Hour
	case FreshnessSlow:
		return 2 * time.Hour
	default:
		return time.Hour
	}
}

// Domain declares one data domain: its name, its statically declared
// temporal key field, its freshness class, and the fetch capability.
type Domain struct {
	// Name identifies the domain in cache keys and logs.
	Name string

	// TemporalField is the field holding the row's temporal key.
	TemporalField string

	// Freshness selects the fast-tier TTL band.
	Freshness FreshnessClass

	// SessionClose is the market close used to pin intraday end requests.
	// Zero value means calendar.DefaultSessionClose.
	SessionClose calendar.SessionClose

	// Fetch retrieves upstream data for a window.
	Fetch Fetcher
}

// Request describes one sync request.
type Request struct {
	// Domain is the registered domain name.
	Domain string

	// Start and End are the requested coverage bounds, loosely formatted
	// (see calendar.ParseDate).
	Start string
	End   string

	// Frequency is the sampling granularity.
	Frequency calendar.Frequency

	// Params are the domain query parameters (e.g., {"code": "sh000001"}).
	Params map[string]string

	// Flags are output-shape modifiers included in the cache key.
	Flags []string
}

// Coordinator owns the refetch decision for every registered domain. It is
// an explicit dependency: construct as many independently configured
// coordinators as needed, there is no process-wide instance.
//
// Per-key operations are not serialized: two concurrent requests for the
// same key may both fetch and both write. Merge idempotence makes that an
// at-least-once refresh, not a correctness problem.
type Coordinator struct {
	store  *store.Tiered
	latest TradingDayOracle

	mu      sync.RWMutex
	domains map[string]Domain

	fetchTimeout time.Duration
	retry        RetryConfig
	cooldown     *cooldownGate
	logger       zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFetchTimeout bounds each upstream fetch call. Store operations are
// assumed local and are not separately bounded.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.fetchTimeout = d
	}
}

// WithRetry overrides the fetch retry configuration.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Coordinator) {
		c.retry = cfg
	}
}

// WithFailureCooldown sets the window during which a key whose fetch just
// failed is served from cache without re-hitting the upstream. Zero
// disables the gate.
func WithFailureCooldown(d time.Duration) Option {
	return func(c *Coordinator) {
		c.cooldown = newCooldownGate(d)
	}
}

// New creates a coordinator over the given tiered store and latest-trading-
// day oracle.
func New(st *store.Tiered, latest TradingDayOracle, opts ...Option) *Coordinator {
	if st == nil {
		panic("tiered store cannot be nil")
	}
	if latest == nil {
		panic("trading day oracle cannot be nil")
	}
	c := &Coordinator{
		store:        st,
		latest:       latest,
		domains:      make(map[string]Domain),
		fetchTimeout: 30 * time.Second,
		retry:        DefaultRetryConfig(),
		cooldown:     newCooldownGate(30 * time.Second),
		logger:       logging.NewLogger("syncer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register declares a data domain. Registering the same name twice is an
// error; domains are static configuration, not runtime state.
func (c *Coordinator) Register(d Domain) error {
	if d.Name == "" {
		return fmt.Errorf("domain name is required")
	}
	if d.TemporalField == "" {
		return fmt.Errorf("domain %s: temporal field is required", d.Name)
	}
	if d.Fetch == nil {
		return fmt.Errorf("domain %s: fetcher is required", d.Name)
	}
	if d.Freshness == "" {
		d.Freshness = FreshnessEndOfDay
	}
	if d.SessionClose == (calendar.SessionClose{}) {
		d.SessionClose = calendar.DefaultSessionClose
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.domains[d.Name]; dup {
		return fmt.Errorf("domain %s already registered", d.Name)
	}
	c.domains[d.Name] = d

	c.logger.Info().
		Str("domain", d.Name).
		Str("temporal_field", d.TemporalField).
		Str("freshness", string(d.Freshness)).
		Msg("Registered domain")
	return nil
}

func (c *Coordinator) domain(name string) (Domain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.domains[name]
	return d, ok
}

// Sync serves the requested coverage window, fetching from the upstream
// only the uncovered sub-window (at most one fetch per request). The
// returned RecordSet is always ascending by temporal key and free of exact
// duplicate rows.
//
// A fetch failure with warm cached data returns the cached set unchanged.
// A durable-persist failure returns the merged data together with a
// *store.TierError; the data is valid, the warning is about persistence.
func (c *Coordinator) Sync(ctx context.Context, req Request) (*recordset.RecordSet, error) {
	d, ok := c.domain(req.Domain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, req.Domain)
	}
	if !req.Frequency.Valid() {
		return nil, &calendar.ParseError{Input: string(req.Frequency), Reason: "unknown frequency"}
	}

	reqStart, err := calendar.ParseDate(req.Start)
	if err != nil {
		return nil, err
	}
	reqEnd, err := calendar.ParseDate(req.End)
	if err != nil {
		return nil, err
	}

	latest, err := c.latest(ctx)
	if err != nil {
		// The oracle is advisory: without it the end clamp is skipped.
		c.logger.Warn().Err(err).Msg("Trading day oracle failed, skipping end clamp")
		latest = time.Time{}
	}

	wantStart := calendar.Bucket(calendar.AdjustStart(reqStart), req.Frequency)
	wantEnd := calendar.Bucket(calendar.AdjustEnd(reqEnd, latest, req.Frequency, d.SessionClose), req.Frequency)

	key := store.CacheKey{
		Domain:    req.Domain,
		Params:    req.Params,
		Frequency: req.Frequency,
		Flags:     req.Flags,
	}

	if wantStart.After(wantEnd) {
		// The adjusted window is empty (e.g., a weekend-only request).
		return recordset.New(d.TemporalField), nil
	}

	cached := c.lookup(ctx, key, d)
	have := cached.Coverage(req.Frequency)
	if have == nil {
		return c.coldFetch(ctx, d, key, wantStart, wantEnd, req)
	}

	needsUpdate := have.End.Before(wantEnd) || have.Start.After(wantStart)
	if !needsUpdate {
		syncRequestsTotal.WithLabelValues(req.Domain, "hit").Inc()
		c.logger.Debug().
			Str("domain", req.Domain).
			Str("key", key.String()).
			Bool("cache_hit", true).
			Msg("Coverage satisfied from cache")
		return cached, nil
	}

	// One fetch per request. Extending forward to freshness takes priority
	// over backfilling history: stale "latest" data is more commonly harmful
	// than missing depth. The other direction is picked up by a later
	// request.
	var fetchStart, fetchEnd time.Time
	direction := "extend"
	if have.End.Before(wantEnd) {
		fetchStart = calendar.NextBucket(have.End, req.Frequency)
		fetchEnd = wantEnd
	} else {
		direction = "backfill"
		fetchStart = wantStart
		fetchEnd = calendar.PrevBucket(have.Start, req.Frequency)
	}

	if c.cooldown.blocked(key.String()) {
		cooldownBlocksTotal.WithLabelValues(req.Domain).Inc()
		syncRequestsTotal.WithLabelValues(req.Domain, "degraded").Inc()
		c.logger.Warn().
			Str("domain", req.Domain).
			Str("key", key.String()).
			Msg("Fetch suppressed by failure cooldown, serving cached data")
		return cached, nil
	}

	fetched, err := c.doFetch(ctx, d, fetchStart, fetchEnd, req.Frequency, req.Params, direction)
	if err != nil {
		// Degrade to the cached data, unchanged. Never lose it.
		c.cooldown.recordFailure(key.String())
		syncRequestsTotal.WithLabelValues(req.Domain, "degraded").Inc()
		c.logger.Warn().
			Err(err).
			Str("domain", req.Domain).
			Str("direction", direction).
			Time("window_start", fetchStart).
			Time("window_end", fetchEnd).
			Msg("Fetch failed, serving cached data")
		return cached, nil
	}

	merged := recordset.Merge(cached, fetched)
	syncRequestsTotal.WithLabelValues(req.Domain, direction).Inc()

	if err := c.persist(ctx, key, merged, d.Freshness.TTL()); err != nil {
		// Soft warning: the data is valid, only persistence is degraded.
		return merged, err
	}
	return merged, nil
}

// lookup loads and decodes the cached RecordSet for a key. Store and decode
// failures are recovered into "no cached data"; the caller falls through to
// a cold fetch.
func (c *Coordinator) lookup(ctx context.Context, key store.CacheKey, d Domain) *recordset.RecordSet {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Store lookup failed, treating as miss")
		}
		return recordset.New(d.TemporalField)
	}

	rs, err := recordset.Decode(d.TemporalField, entry.Payload)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cached payload undecodable, invalidating")
		_ = c.store.Invalidate(ctx, key)
		return recordset.New(d.TemporalField)
	}
	return rs
}

// coldFetch handles the no-cache path: fetch the full requested window and
// store it. Fetch failures propagate; there is nothing to degrade to.
func (c *Coordinator) coldFetch(ctx context.Context, d Domain, key store.CacheKey, start, end time.Time, req Request) (*recordset.RecordSet, error) {
	if c.cooldown.blocked(key.String()) {
		cooldownBlocksTotal.WithLabelValues(req.Domain).Inc()
		syncRequestsTotal.WithLabelValues(req.Domain, "error").Inc()
		return nil, &FetchError{Domain: req.Domain, Start: start, End: end, Err: ErrCooldown}
	}

	fetched, err := c.doFetch(ctx, d, start, end, req.Frequency, req.Params, "cold")
	if err != nil {
		c.cooldown.recordFailure(key.String())
		syncRequestsTotal.WithLabelValues(req.Domain, "error").Inc()
		return nil, err
	}

	syncRequestsTotal.WithLabelValues(req.Domain, "cold").Inc()
	if fetched.Len() == 0 {
		// A legitimately empty window (e.g., all non-trading days) is not
		// cached; caching it would pin an empty coverage forever.
		return fetched, nil
	}

	if err := c.persist(ctx, key, fetched, d.Freshness.TTL()); err != nil {
		return fetched, err
	}
	return fetched, nil
}

// doFetch runs the domain fetcher for one window with timeout and retry.
// The timeout bounds only the upstream call, per request.
func (c *Coordinator) doFetch(ctx context.Context, d Domain, start, end time.Time, freq calendar.Frequency, params map[string]string, direction string) (*recordset.RecordSet, error) {
	fetchesTotal.WithLabelValues(d.Name, direction).Inc()
	timer := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(d.Name).Observe(time.Since(timer).Seconds())
	}()

	logger := c.logger.With().
		Str("domain", d.Name).
		Str("direction", direction).
		Time("window_start", start).
		Time("window_end", end).
		Logger()

	var fetched *recordset.RecordSet
	err := retryWithBackoff(ctx, logger, c.retry, func() error {
		fctx := ctx
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()
		}
		rs, err := d.Fetch(fctx, start, end, freq, params)
		if err != nil {
			return err
		}
		if rs == nil {
			return fmt.Errorf("fetcher returned nil recordset")
		}
		fetched = rs
		return nil
	})
	if err != nil {
		fetchFailuresTotal.WithLabelValues(d.Name).Inc()
		return nil, &FetchError{Domain: d.Name, Start: start, End: end, Err: err}
	}

	fetched.Normalize()
	logger.Info().Int("rows", fetched.Len()).Msg("Fetched upstream window")
	return fetched, nil
}

// persist encodes and stores a RecordSet under the key.
func (c *Coordinator) persist(ctx context.Context, key store.CacheKey, rs *recordset.RecordSet, ttl time.Duration) error {
	payload, err := rs.Encode()
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, key, payload, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Persist failed")
		return err
	}
	return nil
}

// Invalidate removes the cached series for one logical query from both
// tiers.
func (c *Coordinator) Invalidate(ctx context.Context, req Request) error {
	if _, ok := c.domain(req.Domain); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDomain, req.Domain)
	}
	key := store.CacheKey{
		Domain:    req.Domain,
		Params:    req.Params,
		Frequency: req.Frequency,
		Flags:     req.Flags,
	}
	return c.store.Invalidate(ctx, key)
}
