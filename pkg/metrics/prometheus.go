// Package metrics provides Prometheus metrics for the marketintel service.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load outcomes.
const (
	OutcomePublished = "published"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Loads
	loads             *prometheus.CounterVec
	loadLatency       prometheus.Histogram
	datasetRows       prometheus.Gauge
	datasetRanked     prometheus.Gauge
	unresolvedColumns prometheus.Gauge
	datasetGeneration prometheus.Gauge
	lastPublishUnix   prometheus.Gauge

	// Fetches
	fetchErrors   *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	fetchCoalesce prometheus.Counter

	// Queries
	queries      *prometheus.CounterVec
	queryLatency prometheus.Histogram

	// Favorites
	favoritesCount  prometheus.Gauge
	favoritesWrites prometheus.Counter

	// Load queue and workers
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueue    prometheus.Counter
	queueDequeue    prometheus.Counter
	queueRejected   *prometheus.CounterVec
	workerActive    prometheus.Gauge
	reloadsRejected *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// collectors go to the default registerer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "marketintel",
		subsystem:        "screener",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.loads = m.counterVec("loads_total",
		"Dataset loads by outcome (published, discarded as superseded, failed)", "outcome")
	m.loadLatency = m.histogram("load_latency_milliseconds",
		"Fetch to publish latency of dataset loads in milliseconds")
	m.datasetRows = m.gauge("dataset_rows", "Rows in the published dataset")
	m.datasetRanked = m.gauge("dataset_ranked_rows", "Rows with a usable score in the published dataset")
	m.unresolvedColumns = m.gauge("dataset_unresolved_columns",
		"Canonical fields with no backing column in the published dataset")
	m.datasetGeneration = m.gauge("dataset_generation", "Generation of the published dataset")
	m.lastPublishUnix = m.gauge("dataset_last_publish_unix", "Unix time of the last publish")

	m.fetchErrors = m.counterVec("fetch_errors_total",
		"Artifact fetch failures by artifact and HTTP status (0 when not HTTP)", "artifact", "status")
	m.fetchLatency = m.histogramVec("fetch_latency_milliseconds",
		"Artifact fetch latency in milliseconds", "artifact")
	m.fetchCoalesce = m.counter("fetch_coalesced_total",
		"Fetches served by joining an in-flight fetch of the same artifact")

	m.queries = m.counterVec("queries_total", "Screener queries by empty-state reason", "empty")
	m.queryLatency = m.histogram("query_latency_milliseconds", "Screener query latency in milliseconds")

	m.favoritesCount = m.gauge("favorites_count", "Number of favorited tickers")
	m.favoritesWrites = m.counter("favorites_writes_total", "Favorites persistence writes")

	m.queueSize = m.gauge("queue_size", "Pending load requests")
	m.queueCapacity = m.gauge("queue_capacity", "Load queue capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Load requests enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Load requests dequeued")
	m.queueRejected = m.counterVec("queue_rejected_total", "Load requests refused by the queue", "reason")
	m.workerActive = m.gauge("worker_active_count", "Running load workers")
	m.reloadsRejected = m.counterVec("reloads_rejected_total", "Reload requests refused by the API", "reason")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// HTTP.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Loads.

// RecordLoad counts a finished load by outcome.
func RecordLoad(outcome string) error {
	switch outcome {
	case OutcomePublished, OutcomeDiscarded, OutcomeFailed:
		globalManager.loads.WithLabelValues(outcome).Inc()
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownOutcome, outcome)
}

// RecordLoadLatency records load latency in milliseconds.
func RecordLoadLatency(latencyMs float64) {
	globalManager.loadLatency.Observe(latencyMs)
}

// UpdateDataset sets the gauges describing the published dataset.
func UpdateDataset(generation uint64, rows, ranked, unresolved int, publishedUnix int64) {
	globalManager.datasetGeneration.Set(float64(generation))
	globalManager.datasetRows.Set(float64(rows))
	globalManager.datasetRanked.Set(float64(ranked))
	globalManager.unresolvedColumns.Set(float64(unresolved))
	globalManager.lastPublishUnix.Set(float64(publishedUnix))
}

// Fetches.

// RecordFetchError counts a failed fetch; status is 0 for non-HTTP failures.
func RecordFetchError(artifact string, status int) {
	globalManager.fetchErrors.WithLabelValues(artifact, strconv.Itoa(status)).Inc()
}

// RecordFetchLatency records fetch latency in milliseconds.
func RecordFetchLatency(artifact string, latencyMs float64) {
	globalManager.fetchLatency.WithLabelValues(artifact).Observe(latencyMs)
}

// RecordFetchCoalesced counts a fetch that shared another caller's result.
func RecordFetchCoalesced() {
	globalManager.fetchCoalesce.Inc()
}

// Queries.

// RecordQuery counts a query by empty reason ("" for a populated result).
func RecordQuery(emptyReason string, latencyMs float64) {
	if emptyReason == "" {
		emptyReason = "none"
	}
	globalManager.queries.WithLabelValues(emptyReason).Inc()
	globalManager.queryLatency.Observe(latencyMs)
}

// Favorites.

// UpdateFavoritesCount sets the favorites gauge.
func UpdateFavoritesCount(count int) {
	globalManager.favoritesCount.Set(float64(count))
}

// RecordFavoritesWrite counts a persistence write.
func RecordFavoritesWrite() {
	globalManager.favoritesWrites.Inc()
}

// Queue and workers.

// UpdateQueueSize sets the pending request gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueRejected counts a refused enqueue.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the running worker gauge.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordReloadRejected counts a reload refused at the API.
func RecordReloadRejected(reason string) {
	globalManager.reloadsRejected.WithLabelValues(reason).Inc()
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
