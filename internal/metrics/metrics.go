// Package metrics provides the Prometheus metrics of the ingestion pipeline
// and the HTTP surface.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer, in which case every
// observation is dropped.
type Metrics struct {
	IngestionsTotal        *prometheus.CounterVec
	VerdictsTotal          *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	CleanupFailuresTotal   prometheus.Counter
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	registry               *prometheus.Registry
}

func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	collectors := []prometheus.Collector{
		m.IngestionsTotal,
		m.VerdictsTotal,
		m.ClassificationDuration,
		m.CleanupFailuresTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.IngestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrineural_image_ingestions_total",
		Help: "Image ingestion attempts by outcome.",
	}, []string{"outcome"})

	m.VerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrineural_verdicts_total",
		Help: "Persisted classification verdicts.",
	}, []string{"verdict"})

	m.ClassificationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agrineural_classification_duration_seconds",
		Help:    "Duration of classification model calls.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.CleanupFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrineural_storage_cleanup_failures_total",
		Help: "Stored files that could not be removed after a failed ingestion.",
	})

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrineural_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agrineural_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveIngestion(outcome string) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveVerdict(anomalous bool) {
	if m == nil {
		return
	}
	verdict := "healthy"
	if anomalous {
		verdict = "anomalous"
	}
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObserveClassification(d time.Duration) {
	if m == nil {
		return
	}
	m.ClassificationDuration.Observe(d.Seconds())
}

func (m *Metrics) IncCleanupFailures() {
	if m == nil {
		return
	}
	m.CleanupFailuresTotal.Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
