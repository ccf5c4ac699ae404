package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/RTXteam/kgx-storage/pkg/vfs"
)

// RebuildSource is the surface the poller reads; satisfied by *vfs.Rebuilder
// paired with *vfs.Cache.
type RebuildSource interface {
	Stats() vfs.RebuildStats
}

// FallbackSource reports how many stats lookups bypassed the cache.
type FallbackSource interface {
	Fallbacks() uint64
}

// RebuildMetrics exposes Prometheus collectors for the metrics rebuild job
// and the snapshot cache.
type RebuildMetrics struct {
	reg       *prometheus.Registry
	runs      prometheus.Counter
	failed    prometheus.Counter
	fallbacks prometheus.Counter
	prefixes  prometheus.Gauge
	lastRun   prometheus.Gauge
	uptime    prometheus.Gauge

	// delta trackers for absolute counter sources
	prevRuns      float64
	prevFailed    float64
	prevFallbacks float64
}

// NewRebuildMetrics registers rebuild metrics on the provided registry.
func NewRebuildMetrics(reg *prometheus.Registry) *RebuildMetrics {
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kgxstorage",
		Subsystem: "rebuild",
		Name:      "runs_total",
		Help:      "Total number of completed metrics rebuild passes since start.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kgxstorage",
		Subsystem: "rebuild",
		Name:      "failed_prefixes_total",
		Help:      "Total number of prefixes skipped due to aggregation failures since start.",
	})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kgxstorage",
		Subsystem: "cache",
		Name:      "fallback_aggregations_total",
		Help:      "Total number of stats lookups that fell back to live aggregation.",
	})
	prefixes := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kgxstorage",
		Subsystem: "rebuild",
		Name:      "cached_prefixes",
		Help:      "Number of prefixes in the most recent snapshot.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kgxstorage",
		Subsystem: "rebuild",
		Name:      "last_run_timestamp_seconds",
		Help:      "Timestamp of the last completed rebuild pass in seconds since epoch.",
	})
	uptime := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kgxstorage",
		Subsystem: "rebuild",
		Name:      "uptime_seconds",
		Help:      "Total time in seconds since the rebuilder was started.",
	})

	_ = reg.Register(runs)
	_ = reg.Register(failed)
	_ = reg.Register(fallbacks)
	_ = reg.Register(prefixes)
	_ = reg.Register(lastRun)
	_ = reg.Register(uptime)

	return &RebuildMetrics{
		reg:       reg,
		runs:      runs,
		failed:    failed,
		fallbacks: fallbacks,
		prefixes:  prefixes,
		lastRun:   lastRun,
		uptime:    uptime,
	}
}

// Observe updates collectors from rebuild stats and the cache fallback count.
// Safe to call periodically; counter sources are absolute, so deltas are
// tracked internally.
func (m *RebuildMetrics) Observe(st vfs.RebuildStats, fallbacks uint64) {
	addDelta(&m.prevRuns, float64(st.Runs), m.runs)
	addDelta(&m.prevFailed, float64(st.Failed), m.failed)
	addDelta(&m.prevFallbacks, float64(fallbacks), m.fallbacks)

	m.prefixes.Set(float64(st.Prefixes))
	if !st.LastRun.IsZero() {
		m.lastRun.Set(float64(st.LastRun.Unix()))
	}
	m.uptime.Set(st.Uptime.Seconds())
}

func addDelta(prev *float64, current float64, c prometheus.Counter) {
	delta := current - *prev
	if delta < 0 {
		// Counter source reset; start from current.
		*prev = current
		return
	}
	if delta > 0 {
		c.Add(delta)
		*prev = current
	}
}

// StartPolling reads src/cache stats at the given interval and pushes them
// into the collectors. Returns a stop function.
func (m *RebuildMetrics) StartPolling(src RebuildSource, cache FallbackSource, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				var fb uint64
				if cache != nil {
					fb = cache.Fallbacks()
				}
				m.Observe(src.Stats(), fb)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
