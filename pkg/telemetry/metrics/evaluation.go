// Package metrics exposes Prometheus instrumentation for the policy
// engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks policy evaluation and compilation.
//
// Metrics:
//   - polaris_policy_evaluations_total: evaluations by result class
//   - polaris_policy_evaluation_duration_seconds: evaluation duration
//   - polaris_policy_compilations_total: compilations by outcome
type EvaluationMetrics struct {
	// Total evaluations by result class (satisfied, contradiction,
	// residual, error).
	evaluationsTotal *prometheus.CounterVec

	// Evaluation duration histogram.
	evaluationDuration prometheus.Histogram

	// Total compilations by outcome (compiled, constant, error).
	compilationsTotal *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(namespace string, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_evaluations_total",
				Help:      "Total number of policy evaluations by result class",
			},
			[]string{"result"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "policy_evaluation_duration_seconds",
				Help:      "Duration of policy evaluation in seconds",
				// Evaluations should be fast (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		compilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_compilations_total",
				Help:      "Total number of policy compilations by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.compilationsTotal,
	)

	return em
}

// RecordEvaluation records one evaluation with its result class
// ("satisfied", "contradiction", "residual", "error").
func (em *EvaluationMetrics) RecordEvaluation(result string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(result).Inc()
	em.evaluationDuration.Observe(duration.Seconds())
}

// RecordCompilation records one compilation with its outcome
// ("compiled", "constant", "error").
func (em *EvaluationMetrics) RecordCompilation(outcome string) {
	em.compilationsTotal.WithLabelValues(outcome).Inc()
}
