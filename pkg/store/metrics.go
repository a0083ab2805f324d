package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks store hits by tier ("fast", "durable").
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncache_store_hits_total",
			Help: "Total number of store hits by tier",
		},
		[]string{"tier"},
	)

	// CacheMisses tracks store misses by tier.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncache_store_misses_total",
			Help: "Total number of store misses by tier",
		},
		[]string{"tier"},
	)

	// CacheErrors tracks tier operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncache_store_errors_total",
			Help: "Total number of store operation errors by tier",
		},
		[]string{"tier", "operation"}, // "get", "set", "delete", "clear"
	)

	// CacheOpSeconds tracks tier operation latency.
	CacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syncache_store_op_seconds",
			Help:    "Store operation latency in seconds by tier",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"tier", "operation"},
	)
)
