// Package metrics exposes Prometheus instrumentation for the
// classification queue and its dispatch pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcome labels.
const (
	OutcomeDone    = "done"
	OutcomeRetried = "retried"
	OutcomeFailed  = "failed"
)

// Metrics holds the registry and instruments for queue observability.
type Metrics struct {
	registry *prometheus.Registry

	dispatches       *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	queueDepth       *prometheus.GaugeVec
}

// New creates a Metrics with its own registry, pre-registering process
// and Go runtime collectors alongside the queue instruments.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custodian",
			Subsystem: "queue",
			Name:      "dispatches_total",
			Help:      "Completed dispatch attempts by outcome.",
		}, []string{"outcome"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "custodian",
			Subsystem: "queue",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of provider classification calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "custodian",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Queue entries by state, sampled each dispatch cycle.",
		}, []string{"state"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.dispatches,
		m.dispatchDuration,
		m.queueDepth,
	)

	return m
}

// ObserveDispatch records one completed dispatch attempt.
func (m *Metrics) ObserveDispatch(outcome string, seconds float64) {
	m.dispatches.WithLabelValues(outcome).Inc()
	m.dispatchDuration.Observe(seconds)
}

// SetQueueDepth records the current entry count for a state.
func (m *Metrics) SetQueueDepth(state string, count int) {
	m.queueDepth.WithLabelValues(state).Set(float64(count))
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
