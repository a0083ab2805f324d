package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// syncRequestsTotal tracks sync outcomes by domain.
	// Results: "hit", "cold", "extend", "backfill", "degraded", "error".
	syncRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncache_sync_requests_total",
		Help: "Total sync requests by domain and result",
	}, []string{"domain", "result"})

	// fetchDuration tracks upstream fetch latency by domain.
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "syncache_fetch_duration_seconds",
		Help:    "Upstream fetch duration in seconds by domain",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"domain"})

	// fetchesTotal tracks upstream fetches by direction.
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncache_fetches_total",
		Help: "Total upstream fetches by domain and direction",
	}, []string{"domain", "direction"}) // "cold", "extend", "backfill"

	// fetchFailuresTotal tracks failed upstream fetches.
	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncache_fetch_failures_total",
		Help: "Total failed upstream fetches by domain",
	}, []string{"domain"})

	// fetchRetriesTotal tracks fetch retry attempts.
	fetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "syncache_fetch_retries_total",
		Help: "Total fetch retry attempts",
	})

	// cooldownBlocksTotal tracks fetches suppressed by the failure cooldown.
	cooldownBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncache_cooldown_blocks_total",
		Help: "Total fetches suppressed by failure cooldown by domain",
	}, []string{"domain"})
)
