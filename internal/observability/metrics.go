package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. Methods are safe on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	changesCreated  *prometheus.CounterVec
	changesResolved *prometheus.CounterVec
	malformed       prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wiki_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wiki_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wiki_http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"route", "method", "code"}),
		changesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wiki_change_requests_created_total",
			Help: "Change requests filed by entity type and action.",
		}, []string{"entity_type", "action"}),
		changesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wiki_change_requests_resolved_total",
			Help: "Change requests resolved by entity type and outcome.",
		}, []string{"entity_type", "status"}),
		malformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wiki_change_requests_malformed_total",
			Help: "Pending change requests skipped during aggregation.",
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordChangeCreated counts a newly filed change request.
func (m *Metrics) RecordChangeCreated(entityType, action string) {
	if m == nil {
		return
	}
	m.changesCreated.WithLabelValues(entityType, action).Inc()
}

// RecordChangeResolved counts an approval or rejection.
func (m *Metrics) RecordChangeResolved(entityType, status string) {
	if m == nil {
		return
	}
	m.changesResolved.WithLabelValues(entityType, status).Inc()
}

// RecordMalformed counts requests left out of an aggregation.
func (m *Metrics) RecordMalformed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.malformed.Add(float64(n))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
