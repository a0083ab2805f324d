package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marketkit/syncache/internal/testutil"
	"github.com/marketkit/syncache/pkg/calendar"
	"github.com/marketkit/syncache/pkg/store"
	"github.com/marketkit/syncache/pkg/syncer"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func fixedOracle(date string) syncer.TradingDayOracle {
	return func(ctx context.Context) (time.Time, error) {
		return calendar.ParseDate(date)
	}
}

func newCoordinator(t *testing.T, redisClient *redis.Client, sqlitePath string) (*syncer.Coordinator, *testutil.MockFetcher) {
	t.Helper()

	durable, err := store.OpenSQLite(sqlitePath)
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	t.Cleanup(func() { durable.Close() })

	tiered := store.NewTiered(store.NewRedisFast(redisClient), durable)
	fetcher := testutil.NewMockFetcher("date")

	coord := syncer.New(tiered, fixedOracle("2024-01-15"),
		syncer.WithRetry(syncer.RetryConfig{MaxAttempts: 1}),
		syncer.WithFailureCooldown(0),
	)
	if err := coord.Register(syncer.Domain{
		Name:          "index_daily",
		TemporalField: "date",
		Freshness:     syncer.FreshnessEndOfDay,
		Fetch:         fetcher.Fetch,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return coord, fetcher
}

// TestFullSyncFlow tests the complete flow against real tiers:
// cold fetch -> Redis+SQLite write -> incremental extension.
func TestFullSyncFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	coord, fetcher := newCoordinator(t, redisClient, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	req := syncer.Request{
		Domain:    "index_daily",
		Start:     "2024-01-01",
		End:       "2024-01-10",
		Frequency: calendar.FreqDaily,
		Params:    map[string]string{"code": "sh000001"},
	}

	t.Log("Request 1: cold fetch")
	rs, err := coord.Sync(ctx, req)
	if err != nil {
		t.Fatalf("Cold sync failed: %v", err)
	}
	if rs.Len() != 10 {
		t.Errorf("Cold sync rows = %d, want 10", rs.Len())
	}
	if fetcher.CallCount() != 1 {
		t.Errorf("Fetcher calls = %d, want 1", fetcher.CallCount())
	}

	t.Log("Request 2: covered window, no fetch")
	if _, err := coord.Sync(ctx, req); err != nil {
		t.Fatalf("Covered sync failed: %v", err)
	}
	if fetcher.CallCount() != 1 {
		t.Errorf("Fetcher calls = %d, want 1 (cache hit)", fetcher.CallCount())
	}

	t.Log("Request 3: wider window, incremental fetch only")
	req.End = "2024-01-15"
	rs, err = coord.Sync(ctx, req)
	if err != nil {
		t.Fatalf("Extension sync failed: %v", err)
	}
	if rs.Len() != 15 {
		t.Errorf("Extended rows = %d, want 15", rs.Len())
	}
	calls := fetcher.Calls()
	if len(calls) != 2 {
		t.Fatalf("Fetcher calls = %d, want 2", len(calls))
	}
	if got := calls[1].Start.Format("2006-01-02"); got != "2024-01-11" {
		t.Errorf("Incremental fetch start = %s, want 2024-01-11", got)
	}
}

// TestDurableSurvivesRedisFlush tests that a flushed fast tier is
// transparently repopulated from SQLite without an upstream fetch.
func TestDurableSurvivesRedisFlush(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	coord, fetcher := newCoordinator(t, redisClient, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	req := syncer.Request{
		Domain:    "index_daily",
		Start:     "2024-01-01",
		End:       "2024-01-10",
		Frequency: calendar.FreqDaily,
		Params:    map[string]string{"code": "sh000001"},
	}

	before, err := coord.Sync(ctx, req)
	if err != nil {
		t.Fatalf("Seed sync failed: %v", err)
	}

	// Simulate a Redis restart losing all fast-tier state.
	if err := redisClient.FlushAll(ctx).Err(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}

	after, err := coord.Sync(ctx, req)
	if err != nil {
		t.Fatalf("Sync after flush failed: %v", err)
	}
	if fetcher.CallCount() != 1 {
		t.Errorf("Fetcher calls = %d, want 1 (served from durable tier)", fetcher.CallCount())
	}
	if after.Len() != before.Len() {
		t.Errorf("Rows after flush = %d, want %d", after.Len(), before.Len())
	}

	// The durable hit must have repopulated Redis.
	keys, err := redisClient.Keys(ctx, "series:*").Result()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) == 0 {
		t.Error("Fast tier not repopulated after durable read")
	}
}

// TestSQLitePersistsAcrossProcesses tests that a fresh coordinator over the
// same SQLite file serves cached data without fetching.
func TestSQLitePersistsAcrossProcesses(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	sqlitePath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	req := syncer.Request{
		Domain:    "index_daily",
		Start:     "2024-01-01",
		End:       "2024-01-10",
		Frequency: calendar.FreqDaily,
		Params:    map[string]string{"code": "sh000001"},
	}

	first, firstFetcher := newCoordinator(t, redisClient, sqlitePath)
	if _, err := first.Sync(ctx, req); err != nil {
		t.Fatalf("Seed sync failed: %v", err)
	}
	if firstFetcher.CallCount() != 1 {
		t.Fatalf("Fetcher calls = %d, want 1", firstFetcher.CallCount())
	}

	// A "new process": fresh coordinator, fresh fetcher, empty Redis.
	if err := redisClient.FlushAll(ctx).Err(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}
	second, secondFetcher := newCoordinator(t, redisClient, sqlitePath)

	rs, err := second.Sync(ctx, req)
	if err != nil {
		t.Fatalf("Sync in second process failed: %v", err)
	}
	if secondFetcher.CallCount() != 0 {
		t.Errorf("Fetcher calls = %d, want 0 (durable tier has the data)", secondFetcher.CallCount())
	}
	if rs.Len() != 10 {
		t.Errorf("Rows = %d, want 10", rs.Len())
	}
}

// TestRedisExpiryFallsBackToDurable tests the TTL boundary: when the
// fast-tier entry expires, the durable tier still serves without a fetch.
func TestRedisExpiryFallsBackToDurable(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	durable, err := store.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	defer durable.Close()

	tiered := store.NewTiered(store.NewRedisFast(redisClient), durable)
	ctx := context.Background()

	key := store.CacheKey{Domain: "index_daily", Frequency: calendar.FreqDaily}
	payload := []byte(`[{"date":"2024-01-05","close":10}]`)

	if err := tiered.Set(ctx, key, payload, time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	entry, err := tiered.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after fast-tier expiry failed: %v", err)
	}
	if string(entry.Payload) != string(payload) {
		t.Error("Durable tier returned wrong payload after expiry")
	}
}
