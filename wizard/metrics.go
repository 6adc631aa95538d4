package wizard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics for monitoring
// the wizard orchestration layer in production.
//
// Metrics exposed (all namespaced with "wizard_"):
//
//  1. transitions_total (counter): Step transitions by kind and outcome.
//     Labels: kind (advance/retreat/jump), outcome (noop/applied/corrected/fallback).
//  2. corrections_total (counter): Corrective rewrites after a verification
//     mismatch. Steady growth here points at a flaky persistence layer.
//  3. hard_fallbacks_total (counter): Terminal full-reload fallbacks.
//  4. autosaves_total (counter): Draft autosave attempts by status
//     (sent/failed).
//  5. current_step (gauge): Step index after the last settled transition.
//  6. transition_seconds (histogram): Transition duration including
//     persistence, verification, and any corrective rewrite.
//     Labels: kind.
//
// Thread-safe; relies on prometheus client atomics.
type PrometheusMetrics struct {
	transitions   *prometheus.CounterVec
	corrections   prometheus.Counter
	hardFallbacks prometheus.Counter
	autosaves     *prometheus.CounterVec
	currentStep   prometheus.Gauge
	latency       *prometheus.HistogramVec

	enabled bool
}

// NewPrometheusMetrics creates and registers all wizard metrics with the
// provided Prometheus registry. A nil registry uses the global default.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := wizard.NewPrometheusMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.transitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wizard",
		Name:      "transitions_total",
		Help:      "Step transitions by kind and outcome.",
	}, []string{"kind", "outcome"})

	pm.corrections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "wizard",
		Name:      "corrections_total",
		Help:      "Corrective rewrites performed after a navigation desync.",
	})

	pm.hardFallbacks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "wizard",
		Name:      "hard_fallbacks_total",
		Help:      "Terminal hard-reload fallbacks after failed correction.",
	})

	pm.autosaves = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wizard",
		Name:      "autosaves_total",
		Help:      "Draft autosave attempts by status.",
	}, []string{"status"})

	pm.currentStep = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "wizard",
		Name:      "current_step",
		Help:      "Current step index after the last settled transition.",
	})

	pm.latency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wizard",
		Name:      "transition_seconds",
		Help:      "Transition duration including persistence and recovery.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	return pm
}

// SetEnabled toggles metric recording. Disabled metrics are no-ops.
func (pm *PrometheusMetrics) SetEnabled(enabled bool) {
	pm.enabled = enabled
}

// RecordTransition records a settled transition with its duration.
func (pm *PrometheusMetrics) RecordTransition(kind TransitionKind, outcome Outcome, seconds float64) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.transitions.WithLabelValues(string(kind), string(outcome)).Inc()
	pm.latency.WithLabelValues(string(kind)).Observe(seconds)
}

// RecordCorrection records one corrective rewrite.
func (pm *PrometheusMetrics) RecordCorrection() {
	if pm == nil || !pm.enabled {
		return
	}
	pm.corrections.Inc()
}

// RecordFallback records one terminal hard-reload fallback.
func (pm *PrometheusMetrics) RecordFallback() {
	if pm == nil || !pm.enabled {
		return
	}
	pm.hardFallbacks.Inc()
}

// RecordAutosave records a draft autosave attempt; status is "sent" or
// "failed".
func (pm *PrometheusMetrics) RecordAutosave(status string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.autosaves.WithLabelValues(status).Inc()
}

// SetCurrentStep records the step index after a settled transition.
func (pm *PrometheusMetrics) SetCurrentStep(index int) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.currentStep.Set(float64(index))
}
