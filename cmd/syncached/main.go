// Command syncached runs a small HTTP daemon exposing the synchronization
// cache over a /series endpoint, backed by a demo OHLC upstream.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/marketkit/syncache/internal/config"
	"github.com/marketkit/syncache/pkg/calendar"
	"github.com/marketkit/syncache/pkg/logging"
	"github.com/marketkit/syncache/pkg/store"
	"github.com/marketkit/syncache/pkg/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogFormat == "console"
	logging.Setup(logCfg)
	logger := logging.NewLogger("syncached")

	fast, err := buildFastTier(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Fast tier unavailable")
	}

	durable, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("Failed to open durable tier")
	}

	tiered := store.NewTiered(fast, durable)
	defer tiered.Close()

	coord := syncer.New(tiered, latestWeekday,
		syncer.WithFetchTimeout(cfg.FetchTimeout),
		syncer.WithFailureCooldown(cfg.FailureCooldown),
	)
	if err := coord.Register(syncer.Domain{
		Name:          "index_daily",
		TemporalField: "date",
		Freshness:     syncer.FreshnessEndOfDay,
		Fetch:         demoOHLCFetcher,
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register demo domain")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(fast))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/series", seriesHandler(coord))

	logger.Info().Str("addr", cfg.ListenAddr).Msg("Starting syncached")
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildFastTier picks the fast tier from configuration: Redis wins over
// memcached, and with neither configured an in-process map is used.
func buildFastTier(cfg config.Config) (store.FastTier, error) {
	switch {
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		fast := store.NewRedisFast(client)
		if err := fast.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return fast, nil
	case cfg.MemcachedAddr != "":
		fast := store.NewMemcachedFast(cfg.MemcachedAddr)
		if err := fast.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("memcached %s: %w", cfg.MemcachedAddr, err)
		}
		return fast, nil
	default:
		return store.NewMemoryFast(), nil
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(fast store.FastTier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := fast.Ping(ctx); err != nil {
			http.Error(w, fmt.Sprintf("fast tier: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// seriesHandler serves GET /series?domain=index_daily&code=sh000001&
// start=2024-01-01&end=2024-01-31&freq=daily as a JSON row array.
func seriesHandler(coord *syncer.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		freq := calendar.FreqDaily
		if s := q.Get("freq"); s != "" {
			parsed, err := calendar.ParseFrequency(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			freq = parsed
		}

		req := syncer.Request{
			Domain:    q.Get("domain"),
			Start:     q.Get("start"),
			End:       q.Get("end"),
			Frequency: freq,
		}
		if code := q.Get("code"); code != "" {
			req.Params = map[string]string{"code": code}
		}

		rs, err := coord.Sync(r.Context(), req)
		if rs == nil {
			status := http.StatusBadGateway
			var perr *calendar.ParseError
			if errors.Is(err, syncer.ErrUnknownDomain) || errors.As(err, &perr) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		// A non-nil set with an error means persistence is degraded; the
		// data itself is valid and still served.

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rs.Rows()); err != nil {
			logger := logging.NewLogger("syncached")
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

// latestWeekday approximates the latest trading day as the most recent
// weekday. A real deployment would consult an exchange calendar.
func latestWeekday(ctx context.Context) (time.Time, error) {
	t := time.Now()
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return calendar.Bucket(t, calendar.FreqDaily), nil
}
