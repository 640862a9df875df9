package telemetry

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "backoffice_"

// PrometheusMetrics owns a private registry exposed on /metrics. It records
// billing measurements and HTTP request metrics.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	retrievalDuration *prometheus.HistogramVec
	retrievalTotal    *prometheus.CounterVec
	staleTotal        prometheus.Counter
	summaryDuration   prometheus.Histogram
	summaryCurrencies prometheus.Histogram
	overrideWrites    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// NewPrometheusMetrics registers all collectors on a fresh registry
// together with the Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		retrievalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "billing_retrieval_duration_seconds",
			Help:    "Duration of configuration and commission retrieval stages",
			Buckets: RetrievalDurationBuckets,
		}, []string{"stage"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "billing_retrieval_total",
			Help: "Retrieval stages by outcome",
		}, []string{"stage", "outcome"}),
		staleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "billing_retrieval_stale_total",
			Help: "Retrievals discarded because a newer one started",
		}),
		summaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "billing_summary_duration_seconds",
			Help:    "Duration of summary computation",
			Buckets: ComputeDurationBuckets,
		}),
		summaryCurrencies: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "billing_summary_currencies",
			Help:    "Currencies present in a summary",
			Buckets: CurrencyCountBuckets,
		}),
		overrideWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "commission_override_writes_total",
			Help: "Commission override writes by operation and outcome",
		}, []string{"operation", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.retrievalDuration,
		m.retrievalTotal,
		m.staleTotal,
		m.summaryDuration,
		m.summaryCurrencies,
		m.overrideWrites,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)
	return m
}

// RegisterDBStats exposes connection pool statistics of db
func (m *PrometheusMetrics) RegisterDBStats(db *sql.DB, dbName string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

// Registry returns the underlying registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *PrometheusMetrics) ObserveRetrieval(stage, outcome string, elapsed time.Duration) {
	m.retrievalDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	m.retrievalTotal.WithLabelValues(stage, outcome).Inc()
}

func (m *PrometheusMetrics) IncStaleRetrieval() {
	m.staleTotal.Inc()
}

func (m *PrometheusMetrics) ObserveSummary(currencies int, elapsed time.Duration) {
	m.summaryDuration.Observe(elapsed.Seconds())
	m.summaryCurrencies.Observe(float64(currencies))
}

func (m *PrometheusMetrics) IncOverrideWrite(operation, outcome string) {
	m.overrideWrites.WithLabelValues(operation, outcome).Inc()
}

// RequestStarted marks a request in flight and returns the function that
// records its completion.
func (m *PrometheusMetrics) RequestStarted(method, route string) func(status int) {
	start := time.Now()
	m.httpInFlight.Inc()
	return func(status int) {
		m.httpInFlight.Dec()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}
