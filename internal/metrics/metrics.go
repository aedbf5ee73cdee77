// Package metrics provides Prometheus metrics for the clarifier.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the wizard.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	ValidationScore  prometheus.Histogram
	CompletionCalls  *prometheus.CounterVec
	ExportsTotal     prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clarifier_submissions_total",
				Help: "Stage submissions by stage id and result.",
			},
			[]string{"stage", "result"},
		),
		ValidationScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clarifier_validation_score",
				Help:    "Clarity scores produced by the response validator.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		CompletionCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clarifier_completion_calls_total",
				Help: "Completion port calls by caller and status.",
			},
			[]string{"caller", "status"},
		),
		ExportsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clarifier_exports_total",
				Help: "Completed project exports.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.SubmissionsTotal)
	reg.MustRegister(m.ValidationScore)
	reg.MustRegister(m.CompletionCalls)
	reg.MustRegister(m.ExportsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
