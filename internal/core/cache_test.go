package core

import (
	"testing"
	"time"
)

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	cache := newSnapshotCache(60*time.Second, func() time.Time { return now })

	snap := &Snapshot{FetchedAt: now}
	cache.put("k", snap)

	now = now.Add(59 * time.Second)
	got, ok := cache.get("k")
	if !ok {
		t.Fatalf("expected cache hit inside TTL")
	}
	if got != snap {
		t.Fatalf("expected identical snapshot back")
	}
}

func TestSnapshotCacheExpires(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	cache := newSnapshotCache(60*time.Second, func() time.Time { return now })

	cache.put("k", &Snapshot{})
	now = now.Add(60 * time.Second)
	if _, ok := cache.get("k"); ok {
		t.Fatalf("expected entry to expire at TTL boundary")
	}
	// Expired entries are removed on access, so a later put starts fresh.
	cache.put("k", &Snapshot{})
	if _, ok := cache.get("k"); !ok {
		t.Fatalf("expected fresh entry after re-put")
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	cache := newSnapshotCache(time.Minute, nil)
	cache.put("a", &Snapshot{})
	cache.put("b", &Snapshot{})

	cache.invalidate("a")
	if _, ok := cache.get("a"); ok {
		t.Fatalf("expected invalidated entry to be gone")
	}
	if _, ok := cache.get("b"); !ok {
		t.Fatalf("expected untouched entry to survive")
	}

	cache.invalidateAll()
	if _, ok := cache.get("b"); ok {
		t.Fatalf("expected invalidateAll to clear everything")
	}
}

func TestCacheKeyIsOrderSensitive(t *testing.T) {
	a := cacheKey([]string{"one", "two"})
	b := cacheKey([]string{"two", "one"})
	c := cacheKey([]string{"one"})
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct keys, got %q %q %q", a, b, c)
	}
	if a != cacheKey([]string{"one", "two"}) {
		t.Fatalf("expected deterministic key")
	}
}
