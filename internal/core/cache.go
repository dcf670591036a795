package core

import (
	"strings"
	"sync"
	"time"
)

// snapshotCache holds loaded snapshots for a freshness window. Entries are
// evicted lazily on access; refresh invalidates explicitly. The clock is
// injectable so tests control expiry.
type snapshotCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snap     *Snapshot
	storedAt time.Time
}

func newSnapshotCache(ttl time.Duration, now func() time.Time) *snapshotCache {
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

// cacheKey derives the cache key from the exact ordered identifier list.
// Reordering or editing the list is a different key.
func cacheKey(identifiers []string) string {
	return strings.Join(identifiers, "\x1f")
}

func (c *snapshotCache) get(key string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.snap, true
}

func (c *snapshotCache) put(key string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{snap: snap, storedAt: c.now()}
}

func (c *snapshotCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *snapshotCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
