package tools

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts capture operations for the web server's /metrics
// endpoint.
type Metrics struct {
	captures prometheus.Counter
	failures prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics registers the capture metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logic2_captures_total",
			Help: "Total capture-and-analyze operations that completed successfully.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logic2_capture_failures_total",
			Help: "Capture-and-analyze operations that ended in an error.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logic2_capture_duration_seconds",
			Help:    "Wall-clock duration of capture-and-analyze operations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(m.captures, m.failures, m.duration)
	return m
}

// observe records one finished operation. Nil-safe so the CLI can run
// without metrics.
func (m *Metrics) observe(status string, seconds float64) {
	if m == nil {
		return
	}
	if status == "success" {
		m.captures.Inc()
	} else {
		m.failures.Inc()
	}
	m.duration.Observe(seconds)
}
