// Package store provides two-tier key/value persistence for serialized
// time-series payloads: a fast tier with per-entry expiry and a durable tier
// with no expiry.
//
// The durable tier is the source of truth when the fast tier misses, so a
// cold start (empty fast tier after a restart) does not force an upstream
// fetch for data the process already saw. On a durable hit the fast tier is
// backfilled with a default TTL.
//
// # Failure posture
//
// A fast-tier connectivity failure degrades the read to durable-tier-only;
// it never fails the overall read. A durable-tier write failure is reported
// to the caller as a *TierError but does not roll back a successful
// fast-tier write: the fast tier's TTL bounds the inconsistency window.
//
// # Basic Usage
//
//	fast := store.NewRedisFast(redisClient)
//	durable, err := store.OpenSQLite("cache.db")
//	if err != nil {
//		return err
//	}
//	tiered := store.NewTiered(fast, durable)
//
//	key := store.CacheKey{
//		Domain:    "index_daily",
//		Params:    map[string]string{"code": "sh000001"},
//		Frequency: calendar.FreqDaily,
//	}
//
//	entry, err := tiered.Get(ctx, key)
//	if errors.Is(err, store.ErrCacheMiss) {
//		// fetch upstream
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - syncache_store_hits_total{tier}    - hits per tier
//   - syncache_store_misses_total{tier}  - misses per tier
//   - syncache_store_errors_total{tier,operation} - tier operation errors
//   - syncache_store_op_seconds{tier,operation}   - tier operation latency
package store
