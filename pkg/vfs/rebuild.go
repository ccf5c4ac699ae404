package vfs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RebuildStore is the store surface the rebuild job needs.
type RebuildStore interface {
	ChildLister
	RecursiveLister
}

// RebuildConfig controls the periodic metrics rebuild.
type RebuildConfig struct {
	// Bucket is recorded in the snapshot as its source identifier.
	Bucket string
	// MaxDepth bounds the crawl; values <= 0 default to 4.
	MaxDepth int
	// Concurrency controls how many prefixes are aggregated in parallel.
	// Values <= 0 default to 4.
	Concurrency int
	// Interval controls the periodic cadence when running in background.
	// Values <= 0 default to 1h.
	Interval time.Duration
	// SnapshotPath, when non-empty, is where each successful pass is
	// persisted (atomic rename).
	SnapshotPath string
}

// RebuildStats captures rebuild activity for the status endpoint and metrics.
type RebuildStats struct {
	Runs      uint64        `json:"runs"`
	Prefixes  uint64        `json:"prefixes"`
	Failed    uint64        `json:"failedPrefixes"`
	LastRun   time.Time     `json:"lastRun"`
	LastError string        `json:"lastError,omitempty"`
	Uptime    time.Duration `json:"uptime"`
}

// Rebuilder runs crawl + per-prefix aggregation and assembles snapshots.
// Safe for concurrent use; overlapping passes are independent and the last
// snapshot writer wins via rename.
type Rebuilder struct {
	store RebuildStore
	cfg   RebuildConfig

	mu      sync.RWMutex
	start   time.Time
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	runs      atomic.Uint64
	prefixes  atomic.Uint64
	failed    atomic.Uint64
	lastRun   atomic.Pointer[time.Time]
	lastError atomic.Pointer[string]
}

// NewRebuilder creates a rebuilder with sane defaults applied to cfg.
func NewRebuilder(s RebuildStore, cfg RebuildConfig) *Rebuilder {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 4
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Rebuilder{
		store:  s,
		cfg:    cfg,
		stopCh: make(chan struct{}, 1),
		doneCh: make(chan struct{}),
	}
}

// RunOnce performs a single rebuild pass: discover every prefix within the
// depth bound, aggregate each with a bounded worker pool, and assemble a
// fresh snapshot. A failed prefix is logged, counted, and omitted from the
// snapshot; only a failed root enumeration fails the pass. Prefixes with zero
// objects are omitted (absence means empty).
func (r *Rebuilder) RunOnce(ctx context.Context) (*Snapshot, error) {
	started := time.Now().UTC()
	prefixes, err := Discover(ctx, r.store, r.cfg.MaxDepth)
	if err != nil {
		r.recordErr(err)
		return nil, err
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	stats := make(map[string]DirStats, len(prefixes))
	var failed atomic.Uint64

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for prefix := range jobs {
				st, aerr := Aggregate(ctx, r.store, prefix)
				if aerr != nil {
					failed.Add(1)
					slog.Warn("vfs: aggregate prefix failed, skipping",
						slog.String("prefix", prefix), slog.String("error", aerr.Error()))
					continue
				}
				if st.Count == 0 {
					continue
				}
				mu.Lock()
				stats[prefix] = st
				mu.Unlock()
			}
		}()
	}
	for _, p := range prefixes {
		select {
		case jobs <- p:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		r.recordErr(err)
		return nil, err
	}

	snap := &Snapshot{
		ComputedAt: time.Now().UTC(),
		Bucket:     r.cfg.Bucket,
		Stats:      stats,
	}
	r.runs.Add(1)
	r.prefixes.Store(uint64(len(stats)))
	r.failed.Add(failed.Load())
	now := time.Now().UTC()
	r.lastRun.Store(&now)
	slog.Info("vfs: rebuild pass complete",
		slog.Int("discovered", len(prefixes)),
		slog.Int("cached", len(stats)),
		slog.Uint64("failed", failed.Load()),
		slog.Duration("elapsed", time.Since(started)))
	return snap, nil
}

// RunAndSave runs one pass and persists the snapshot to the configured path.
// A failed pass leaves any previously persisted snapshot in effect.
func (r *Rebuilder) RunAndSave(ctx context.Context) (*Snapshot, error) {
	snap, err := r.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	if r.cfg.SnapshotPath != "" {
		if err := snap.WriteFile(r.cfg.SnapshotPath); err != nil {
			r.recordErr(err)
			return nil, err
		}
	}
	return snap, nil
}

// Start launches periodic background rebuilds until Stop is called or the
// context is canceled. The first pass runs immediately.
func (r *Rebuilder) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("vfs: rebuilder already running")
	}
	r.mu.Lock()
	r.start = time.Now()
	r.mu.Unlock()
	go r.loop(ctx)
	return nil
}

func (r *Rebuilder) loop(ctx context.Context) {
	defer func() {
		r.running.Store(false)
		close(r.doneCh)
	}()
	if _, err := r.RunAndSave(ctx); err != nil {
		slog.Error("vfs: rebuild failed", slog.String("error", err.Error()))
	}
	t := time.NewTimer(r.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-t.C:
			if _, err := r.RunAndSave(ctx); err != nil {
				slog.Error("vfs: rebuild failed", slog.String("error", err.Error()))
			}
			t.Reset(r.cfg.Interval)
		}
	}
}

// Stop requests the background loop to stop and waits for completion.
func (r *Rebuilder) Stop(ctx context.Context) error {
	if !r.running.Load() {
		return nil
	}
	select {
	case r.stopCh <- struct{}{}:
	default:
	}
	select {
	case <-r.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of rebuild counters.
func (r *Rebuilder) Stats() RebuildStats {
	var lastRun time.Time
	if p := r.lastRun.Load(); p != nil {
		lastRun = *p
	}
	var lastErr string
	if e := r.lastError.Load(); e != nil {
		lastErr = *e
	}
	r.mu.RLock()
	start := r.start
	r.mu.RUnlock()
	var uptime time.Duration
	if !start.IsZero() {
		uptime = time.Since(start)
	}
	return RebuildStats{
		Runs:      r.runs.Load(),
		Prefixes:  r.prefixes.Load(),
		Failed:    r.failed.Load(),
		LastRun:   lastRun,
		LastError: lastErr,
		Uptime:    uptime,
	}
}

func (r *Rebuilder) recordErr(err error) {
	s := err.Error()
	r.lastError.Store(&s)
}
