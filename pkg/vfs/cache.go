package vfs

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Cache holds the in-memory metrics snapshot for the serving path. The
// snapshot is read-only after load; Reload swaps a single pointer, so
// arbitrarily many requests read it concurrently without coordination, and a
// reader mid-request keeps the snapshot it started with.
type Cache struct {
	snap      atomic.Pointer[Snapshot]
	lister    RecursiveLister
	fallbacks atomic.Uint64
}

// NewCache creates a cache that starts empty. Lookups for uncached prefixes
// fall back to live aggregation against l.
func NewCache(l RecursiveLister) *Cache {
	c := &Cache{lister: l}
	c.snap.Store(&Snapshot{Stats: map[string]DirStats{}})
	return c
}

// LoadFile reads a persisted snapshot into the cache. A missing or corrupt
// file leaves the current snapshot in place and returns the error; the caller
// logs it and serving continues with whatever is loaded (possibly empty).
func (c *Cache) LoadFile(path string) error {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return err
	}
	c.snap.Store(snap)
	slog.Info("vfs: snapshot loaded",
		slog.String("path", path),
		slog.Int("prefixes", len(snap.Stats)),
		slog.Time("computedAt", snap.ComputedAt))
	return nil
}

// Set replaces the current snapshot. The old snapshot is never mutated.
func (c *Cache) Set(snap *Snapshot) {
	if snap == nil {
		return
	}
	c.snap.Store(snap)
}

// Snapshot returns the current snapshot. Never nil.
func (c *Cache) Snapshot() *Snapshot {
	return c.snap.Load()
}

// StatsFor returns DirStats for prefix: the cached value when present, or a
// live aggregation otherwise. The fallback is slower but returns the same
// contract; a miss for a prefix inside the crawl depth just means the
// snapshot predates the prefix.
func (c *Cache) StatsFor(ctx context.Context, prefix string) (DirStats, error) {
	if st, ok := c.snap.Load().Lookup(prefix); ok {
		return st, nil
	}
	c.fallbacks.Add(1)
	return Aggregate(ctx, c.lister, prefix)
}

// Fallbacks reports how many lookups have fallen back to live aggregation.
func (c *Cache) Fallbacks() uint64 {
	return c.fallbacks.Load()
}
