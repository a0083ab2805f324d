package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLiteDurable {
	t.Helper()
	durable, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { durable.Close() })
	return durable
}

func TestSQLiteDurable_SetGetDelete(t *testing.T) {
	durable := openTestSQLite(t)
	ctx := context.Background()

	if _, err := durable.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for absent key, got %v", err)
	}

	payload := []byte(`[{"date":"2024-01-05","close":10}]`)
	if err := durable.Set(ctx, "k1", payload); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := durable.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %s", got)
	}

	if err := durable.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := durable.Get(ctx, "k1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestSQLiteDurable_Upsert(t *testing.T) {
	durable := openTestSQLite(t)
	ctx := context.Background()

	if err := durable.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("first Set failed: %v", err)
	}
	if err := durable.Set(ctx, "k1", []byte("v2")); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	got, err := durable.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("upsert kept old value: got %s, want v2", got)
	}
}

func TestSQLiteDurable_Clear(t *testing.T) {
	durable := openTestSQLite(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := durable.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}
	if err := durable.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, err := durable.Get(ctx, k); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("key %s survived Clear", k)
		}
	}
}

func TestSQLiteDurable_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	durable, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := durable.Set(ctx, "k1", []byte("persisted")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := durable.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("payload lost across reopen: got %s", got)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Error("OpenSQLite should reject an empty path")
	}
}
