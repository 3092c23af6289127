package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/storyreel/storyreel/internal/db"
)

func setupTestKV(t *testing.T, maxBytes int) *KV {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewKV(database.Conn(), maxBytes)
}

func TestKV_SetGetRemove(t *testing.T) {
	kv := setupTestKV(t, 0)
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want absent", ok, err)
	}

	if err := kv.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || got != "v2" {
		t.Fatalf("Get(k) = %q, %v, %v; want v2", got, ok, err)
	}

	if err := kv.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("key still present after Remove")
	}
}

func TestKV_QuotaExceeded(t *testing.T) {
	kv := setupTestKV(t, 16)
	ctx := context.Background()

	err := kv.Set(ctx, "big", strings.Repeat("x", 17))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Set() error = %v, want ErrQuotaExceeded", err)
	}
	if _, ok, _ := kv.Get(ctx, "big"); ok {
		t.Fatal("oversized value was stored")
	}
}
