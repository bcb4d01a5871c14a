// Package metrics provides Prometheus metrics for the control plane and
// worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the pipeline exposes.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	RegistrationsTotal *prometheus.CounterVec

	JobsTotal           *prometheus.CounterVec
	BlobsEvaluatedTotal *prometheus.CounterVec
	ValidationFindings  prometheus.Histogram

	StorageOperations *prometheus.CounterVec
	StorageLatency    *prometheus.HistogramVec
	StorageErrors     *prometheus.CounterVec

	BucketOperations *prometheus.CounterVec
	BucketErrors     *prometheus.CounterVec

	BrokerPublished *prometheus.CounterVec
	BrokerRetries   *prometheus.CounterVec
	BrokerDLQ       prometheus.Counter

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_pipeline_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "validation_pipeline_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_schema_registrations_total",
			Help: "Total number of schema registrations",
		},
		[]string{"status"},
	)

	m.JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_jobs_total",
			Help: "Total number of evaluation jobs processed",
		},
		[]string{"namespace", "status"},
	)

	m.BlobsEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_blobs_evaluated_total",
			Help: "Total number of blobs evaluated, by routing decision",
		},
		[]string{"namespace", "route"},
	)

	m.ValidationFindings = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "validation_pipeline_findings_per_blob",
			Help:    "Number of validation findings per evaluated blob",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	m.StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"backend", "operation"},
	)

	m.StorageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_pipeline_storage_latency_seconds",
			Help:    "Storage operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	m.StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_storage_errors_total",
			Help: "Total number of storage errors",
		},
		[]string{"backend", "operation"},
	)

	m.BucketOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_bucket_operations_total",
			Help: "Total number of object-store operations",
		},
		[]string{"bucket", "operation"},
	)

	m.BucketErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_bucket_errors_total",
			Help: "Total number of object-store errors",
		},
		[]string{"bucket", "operation"},
	)

	m.BrokerPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_broker_published_total",
			Help: "Total number of messages published to the broker",
		},
		[]string{"routing_key"},
	)

	m.BrokerRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_broker_retries_total",
			Help: "Total number of messages re-queued for retry",
		},
		[]string{"routing_key"},
	)

	m.BrokerDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "validation_pipeline_broker_dlq_total",
			Help: "Total number of messages routed to the dead-letter queue",
		},
	)

	m.CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	m.CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_pipeline_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.RegistrationsTotal,
		m.JobsTotal,
		m.BlobsEvaluatedTotal,
		m.ValidationFindings,
		m.StorageOperations,
		m.StorageLatency,
		m.StorageErrors,
		m.BucketOperations,
		m.BucketErrors,
		m.BrokerPublished,
		m.BrokerRetries,
		m.BrokerDLQ,
		m.CacheHits,
		m.CacheMisses,
	)

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware returns HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.RequestsInFlight.Inc()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.RequestsInFlight.Dec()
		duration := time.Since(start).Seconds()

		path := normalizePath(r.URL.Path)
		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses path parameters to keep label cardinality bounded.
func normalizePath(path string) string {
	switch {
	case startsWith(path, "/schema/namespace/"):
		return "/schema/namespace/{namespace}"
	case startsWith(path, "/schema/") && !startsWith(path, "/schema/all"):
		return "/schema/{namespace}"
	case startsWith(path, "/job/validate/namespace/"):
		return "/job/validate/namespace/{namespace}"
	}
	return path
}

func startsWith(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// RecordSchemaRegistration records a schema registration attempt.
func (m *Metrics) RecordSchemaRegistration(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.RegistrationsTotal.WithLabelValues(status).Inc()
}

// RecordJob records the terminal outcome of one evaluation job.
func (m *Metrics) RecordJob(namespace string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.JobsTotal.WithLabelValues(namespace, status).Inc()
}

// RecordBlobEvaluated records one blob's routing decision and finding count.
func (m *Metrics) RecordBlobEvaluated(namespace, route string, findingCount int) {
	m.BlobsEvaluatedTotal.WithLabelValues(namespace, route).Inc()
	m.ValidationFindings.Observe(float64(findingCount))
}

// RecordStorageOperation records a storage operation's latency and outcome.
func (m *Metrics) RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	m.StorageOperations.WithLabelValues(backend, operation).Inc()
	m.StorageLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		m.StorageErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordBucketOperation records an object-store operation's outcome.
func (m *Metrics) RecordBucketOperation(bucket, operation string, err error) {
	m.BucketOperations.WithLabelValues(bucket, operation).Inc()
	if err != nil {
		m.BucketErrors.WithLabelValues(bucket, operation).Inc()
	}
}

// RecordBrokerPublish records a message published to routingKey.
func (m *Metrics) RecordBrokerPublish(routingKey string) {
	m.BrokerPublished.WithLabelValues(routingKey).Inc()
}

// RecordBrokerRetry records a message re-queued for retry on routingKey.
func (m *Metrics) RecordBrokerRetry(routingKey string) {
	m.BrokerRetries.WithLabelValues(routingKey).Inc()
}

// RecordBrokerDLQ records a message routed to the dead-letter queue.
func (m *Metrics) RecordBrokerDLQ() {
	m.BrokerDLQ.Inc()
}

// RecordCacheAccess records a cache hit or miss.
func (m *Metrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}
