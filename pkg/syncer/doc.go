// Package syncer implements incremental synchronization of cached time
// series against upstream data sources.
//
// Every data domain (index quotes, option chains, OHLC history, ...) shares
// one caching discipline: check the cached coverage window, fetch only the
// uncovered sub-window, merge, re-persist. The Coordinator implements that
// discipline once; domains plug in a Fetcher and a schema declaration.
//
// # Request flow
//
//  1. Build a deterministic cache key from domain + canonicalized params.
//  2. Look up the tiered store. A miss leads to a cold fetch of the full
//     window.
//  3. Compare cached coverage against the requested window, after both are
//     weekend-adjusted and bucket-snapped at the request frequency.
//  4. Fetch only the uncovered sub-window: forward extension has priority
//     over historical backfill, and at most one fetch happens per request.
//  5. Merge (pure, idempotent, commutative) and persist with the domain's
//     freshness TTL.
//
// # Basic Usage
//
//	coord := syncer.New(tiered, oracle)
//	err := coord.Register(syncer.Domain{
//		Name:          "index_daily",
//		TemporalField: "date",
//		Freshness:     syncer.FreshnessEndOfDay,
//		Fetch:         fetchIndexDaily,
//	})
//	if err != nil {
//		return err
//	}
//
//	rs, err := coord.Sync(ctx, syncer.Request{
//		Domain:    "index_daily",
//		Start:     "2024-01-01",
//		End:       "2024-01-15",
//		Frequency: calendar.FreqDaily,
//		Params:    map[string]string{"code": "sh000001"},
//	})
//
// # Degradation
//
// A fetch failure with warm cached data serves the cached set unchanged and
// opens a short cooldown window for the key so a flapping upstream is not
// hammered. Only the cold path (no cached data at all) propagates fetch
// failures to the caller.
package syncer
