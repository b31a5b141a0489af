package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects server-side counters on a private registry so the
// /metrics endpoint only exposes what this service emits.
type Metrics struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds the metric set and registers it.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offline_election",
			Name:      "runs_total",
			Help:      "Election runs by algorithm and outcome.",
		}, []string{"algorithm", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "offline_election",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of election runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"algorithm"}),
	}
	m.registry.MustRegister(m.runs, m.duration)
	return m
}

// ObserveRun records one completed or failed election run.
func (m *Metrics) ObserveRun(algorithm, outcome string, seconds float64) {
	m.runs.WithLabelValues(algorithm, outcome).Inc()
	if outcome == "ok" {
		m.duration.WithLabelValues(algorithm).Observe(seconds)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
