package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, err := c.Get(ctx, "inventory:summary:test"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss for absent key, got %v", err)
	}
	if err := c.Set(ctx, "inventory:summary:test", `[{"bloodGroup":"A+","count":2}]`, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "inventory:summary:test")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `[{"bloodGroup":"A+","count":2}]` {
		t.Errorf("unexpected value %q", got)
	}
	if err := c.Delete(ctx, "inventory:summary:test"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "inventory:summary:test"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after delete, got %v", err)
	}
	if err := c.Delete(ctx); err != nil {
		t.Errorf("Delete with no keys: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseCache(t, NewMemory())
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "k", "v", 30*time.Second); err != nil {
		t.Fatal(err)
	}
	now = now.Add(29 * time.Second)
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Errorf("expected hit before expiry, got %v", err)
	}
	now = now.Add(time.Second)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected miss at expiry, got %v", err)
	}
}

func TestMemory_NoTTL(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Set(ctx, "k", "v", 0)
	now = now.Add(24 * 365 * time.Hour)
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Errorf("expected entry without ttl to persist, got %v", err)
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	r, err := DialRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer r.Close()
	exerciseCache(t, r)
}

func TestDialRedis_BadURL(t *testing.T) {
	if _, err := DialRedis(context.Background(), "http://not-redis"); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}

func TestMemory_SweepsUnreadExpiredKeys(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "inventory:summary:old", "[]", 30*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx, "inventory:summary:gen", "g1", 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if err := m.Set(ctx, "inventory:summary:g1", "[]", 30*time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.data["inventory:summary:old"]; ok {
		t.Error("expected expired key to be swept")
	}
	if _, ok := m.data["inventory:summary:gen"]; !ok {
		t.Error("expected key without ttl to survive the sweep")
	}
}
