// Package metrics exposes the Prometheus gauges and histograms published by
// the worker and graph-service processes on GET /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric this module publishes, with its own
// prometheus.Registry so multiple instances (one per test) never collide
// on the global default registry.
type Registry struct {
	registry *prometheus.Registry

	JobsTotal           *prometheus.CounterVec
	GraphOpDuration     *prometheus.HistogramVec
	QueuePendingDepth   prometheus.Gauge
	BlastRadiusSize     prometheus.Histogram
	PoisonMessagesTotal prometheus.Counter
}

// New builds a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doraemon_jobs_total",
			Help: "Analysis jobs processed, partitioned by terminal state.",
		}, []string{"state"}),
		GraphOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doraemon_graph_op_duration_seconds",
			Help:    "GraphStore operation latency by operation name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		QueuePendingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "doraemon_queue_pending_depth",
			Help: "Messages currently in this consumer's pending entries list.",
		}),
		BlastRadiusSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "doraemon_blast_radius_size",
			Help:    "Number of files in a computed blast radius.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		PoisonMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doraemon_poison_messages_total",
			Help: "Queue messages dropped because they could not be decoded.",
		}),
	}

	reg.MustRegister(
		m.JobsTotal,
		m.GraphOpDuration,
		m.QueuePendingDepth,
		m.BlastRadiusSize,
		m.PoisonMessagesTotal,
	)
	return m
}

// Handler returns the http.Handler to mount at GET /metrics.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveJobTerminalState increments the counter for a job reaching state
// (one of "success", "no-change", "failure").
func (m *Registry) ObserveJobTerminalState(state string) {
	m.JobsTotal.WithLabelValues(state).Inc()
}

// ObserveGraphOp records the duration, in seconds, of a single GraphStore
// operation.
func (m *Registry) ObserveGraphOp(operation string, seconds float64) {
	m.GraphOpDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveBlastRadius records the size of a computed blast radius set.
func (m *Registry) ObserveBlastRadius(size int) {
	m.BlastRadiusSize.Observe(float64(size))
}

// IncPoisonMessage records a dropped, undecodable queue message.
func (m *Registry) IncPoisonMessage() {
	m.PoisonMessagesTotal.Inc()
}

// SetQueuePendingDepth records the current size of this consumer's pending
// entries list.
func (m *Registry) SetQueuePendingDepth(depth float64) {
	m.QueuePendingDepth.Set(depth)
}
