package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy module.
// Tracks generation outcomes per backend and the latency of the two blocking
// collaborators: the generator and the record store.
type Metrics struct {
	PoliciesCreated    *prometheus.CounterVec
	PoliciesDeleted    prometheus.Counter
	GenerationFailures *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	StoreDuration      *prometheus.HistogramVec
}

// New registers the policy metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the policy metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PoliciesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iam_policies_created_total",
			Help: "Total number of policies generated and stored",
		}, []string{"generator"}),
		PoliciesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "iam_policies_deleted_total",
			Help: "Total number of policy delete requests that succeeded",
		}),
		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iam_policy_generation_failures_total",
			Help: "Total number of failed generations by backend and reason",
		}, []string{"generator", "reason"}),
		GenerationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iam_policy_generation_duration_seconds",
			Help:    "Duration of policy generation (oracle round trip or heuristic)",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"generator"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iam_policy_store_duration_seconds",
			Help:    "Duration of record store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementCreated records a stored policy for the given generator.
func (m *Metrics) IncrementCreated(generator string) {
	m.PoliciesCreated.WithLabelValues(generator).Inc()
}

// IncrementDeleted records a successful delete.
func (m *Metrics) IncrementDeleted() {
	m.PoliciesDeleted.Inc()
}

// IncrementGenerationFailure records a failed generation.
func (m *Metrics) IncrementGenerationFailure(generator, reason string) {
	m.GenerationFailures.WithLabelValues(generator, reason).Inc()
}

// ObserveGeneration records generation latency.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGeneration(generator string, start time.Time) {
	m.GenerationDuration.WithLabelValues(generator).Observe(time.Since(start).Seconds())
}

// ObserveStore records a store operation's latency.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
