// Package metrics provides Prometheus instrumentation for the dispatch
// core: accept and dispatch counters, queue depth, worker activity, and
// request handling latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for the server.
type Registry struct {
	// Accept path
	ConnectionsAccepted   prometheus.Counter
	ConnectionsDispatched prometheus.Counter
	ConnectionsRejected   prometheus.Counter
	QueueDepth            prometheus.Gauge
	QueueCapacity         prometheus.Gauge

	// Worker pool
	WorkersStarted prometheus.Gauge
	WorkersActive  prometheus.Gauge

	// Request handling
	RequestsTotal  *prometheus.CounterVec
	HandleDuration prometheus.Histogram
}

// DefaultRegistry is registered against the global Prometheus registerer.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a metrics registry with the given Prometheus
// registerer. Pass a fresh prometheus.NewRegistry() in tests to avoid
// duplicate registration panics.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		ConnectionsAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nanoserve",
				Subsystem: "server",
				Name:      "connections_accepted_total",
				Help:      "Total number of connections accepted from the listener",
			},
		),

		ConnectionsDispatched: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nanoserve",
				Subsystem: "server",
				Name:      "connections_dispatched_total",
				Help:      "Total number of connections handed to the dispatch queue",
			},
		),

		ConnectionsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nanoserve",
				Subsystem: "server",
				Name:      "connections_rejected_total",
				Help:      "Total number of accepted connections closed because the queue was shut down",
			},
		),

		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nanoserve",
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Number of connections currently waiting in the dispatch queue",
			},
		),

		QueueCapacity: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nanoserve",
				Subsystem: "dispatch",
				Name:      "queue_capacity",
				Help:      "Configured dispatch queue capacity, 0 means unbounded",
			},
		),

		WorkersStarted: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nanoserve",
				Subsystem: "workers",
				Name:      "started",
				Help:      "Number of worker goroutines that started",
			},
		),

		WorkersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nanoserve",
				Subsystem: "workers",
				Name:      "active",
				Help:      "Number of workers currently handling a connection",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nanoserve",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of requests handled, by outcome",
			},
			[]string{"outcome"},
		),

		HandleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nanoserve",
				Subsystem: "http",
				Name:      "handle_duration_seconds",
				Help:      "Time spent handling a single connection",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}
