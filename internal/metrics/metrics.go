// Package metrics exposes Prometheus instruments for registration and verification.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendance engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Verification outcomes by label ("validated", "rejected_too_far", ...)
	Outcomes *prometheus.CounterVec

	// Errors that stopped an attempt before a decision, by kind
	Failures *prometheus.CounterVec

	// Registrations completed
	Registrations prometheus.Counter

	// Collaborator latencies by step ("location", "capture", "encode", "journal")
	StepLatency *prometheus.HistogramVec

	// Full verification latency
	VerifyLatency prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_verification_outcomes_total",
			Help: "Verification outcomes by result",
		}, []string{"outcome"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_attempt_failures_total",
			Help: "Attempts stopped before a decision, by error kind",
		}, []string{"operation", "kind"}),

		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "presence_registrations_total",
			Help: "Completed agent registrations",
		}),

		StepLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "presence_step_duration_seconds",
			Help:    "Duration of collaborator calls by step",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"step"}),

		VerifyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "presence_verify_duration_seconds",
			Help:    "Duration of a full verification attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementOutcome records a decided or short-circuited outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// IncrementFailure records an attempt aborted by an error.
func (m *Metrics) IncrementFailure(operation, kind string) {
	if m != nil {
		m.Failures.WithLabelValues(operation, kind).Inc()
	}
}

// IncrementRegistrations records a completed registration.
func (m *Metrics) IncrementRegistrations() {
	if m != nil {
		m.Registrations.Inc()
	}
}

// ObserveStep records the duration of one collaborator call.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m != nil {
		m.StepLatency.WithLabelValues(step).Observe(d.Seconds())
	}
}

// ObserveVerify records the total verification duration.
func (m *Metrics) ObserveVerify(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
