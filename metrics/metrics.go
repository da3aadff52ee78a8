// Package metrics exposes Prometheus metrics for code runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for runpad. It implements
// runner.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	RunsRejected   *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// New creates and registers all metrics on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "runpad",
				Name:      "runs_total",
				Help:      "Total number of runs by language and status.",
			},
			[]string{"language", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "runpad",
				Name:      "run_duration_seconds",
				Help:      "Duration of runs in seconds.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"language"},
		),

		RunsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "runpad",
				Name:      "runs_rejected_total",
				Help:      "Runs rejected because another run was in progress.",
			},
			[]string{"language"},
		),

		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "runpad",
				Name:      "active_sessions",
				Help:      "Number of open console sessions.",
			},
		),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunsRejected,
		m.ActiveSessions,
	)

	return m
}

// ObserveRun counts a completed run and records its duration.
func (m *Metrics) ObserveRun(language, status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(language, status).Inc()
	m.RunDuration.WithLabelValues(language).Observe(d.Seconds())
}

// ObserveRejected counts a run refused because the session was busy.
func (m *Metrics) ObserveRejected(language string) {
	m.RunsRejected.WithLabelValues(language).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
