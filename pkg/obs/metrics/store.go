package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds Prometheus collectors for object-store client calls.
type StoreMetrics struct {
	reg     *prometheus.Registry
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewStoreMetrics registers store metrics on the provided registry.
func NewStoreMetrics(reg *prometheus.Registry) *StoreMetrics {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kgxstorage",
		Subsystem: "store",
		Name:      "ops_total",
		Help:      "Total number of object-store calls by operation and result.",
	}, []string{"op", "result"}) // result = "ok" | "error"
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kgxstorage",
		Subsystem: "store",
		Name:      "op_duration_seconds",
		Help:      "Histogram of object-store call durations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	_ = reg.Register(ops)
	_ = reg.Register(latency)

	return &StoreMetrics{reg: reg, ops: ops, latency: latency}
}

// Observe records one store call. dur is the total time spent in the call.
func (m *StoreMetrics) Observe(op string, err error, dur time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(dur.Seconds())
}
