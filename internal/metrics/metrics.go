// Package metrics exposes Prometheus collectors for showcase pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "showcase"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	steps       *prometheus.HistogramVec
	sideEffects *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome (complete, failed, skipped).",
		}, []string{"outcome"}),
		steps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Latency of individual pipeline steps.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"step"}),
		sideEffects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort operations that failed and were swallowed.",
		}, []string{"op"}),
	}
}

func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(step).Observe(d.Seconds())
}

func (m *Metrics) ObserveSideEffectFailure(op string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(op).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
