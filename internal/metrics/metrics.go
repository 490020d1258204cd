// Package metrics provides Prometheus metrics for the planwise backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	GenerationAttempts *prometheus.CounterVec
	StoriesGenerated   prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwise_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planwise_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		GenerationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwise_generation_attempts_total",
				Help: "Story generation attempts by model and outcome.",
			},
			[]string{"model", "outcome"},
		),
		StoriesGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planwise_stories_generated_total",
				Help: "Total user stories produced by the generator.",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwise_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.GenerationAttempts)
	reg.MustRegister(m.StoriesGenerated)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the HTTP request counter.
func (m *Metrics) RecordRequest(method, route, status string) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records one request's duration in seconds.
func (m *Metrics) ObserveRequestDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordGenerationAttempt increments the generation attempt counter.
func (m *Metrics) RecordGenerationAttempt(model, outcome string) {
	m.GenerationAttempts.WithLabelValues(model, outcome).Inc()
}

// RecordStories adds n to the generated-stories counter.
func (m *Metrics) RecordStories(n int) {
	m.StoriesGenerated.Add(float64(n))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
