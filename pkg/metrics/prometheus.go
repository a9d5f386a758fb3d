// Package metrics provides Prometheus metrics for the polytrack leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds. Document writes fsync, so the upper end is generous.
var defaultLatencyBucketsMs = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	raceResults   *prometheus.CounterVec
	tracksUpserts *prometheus.CounterVec
	lockChanges   *prometheus.CounterVec

	// Ranking
	rankingLatency *prometheus.HistogramVec
	boardSize      prometheus.Histogram

	// Persistence
	storeWriteLatency *prometheus.HistogramVec
	storeWriteErrors  *prometheus.CounterVec
	storeCorruptReads *prometheus.CounterVec
	writerQueueDepth  *prometheus.GaugeVec
	documentRecords   *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	rateLimited         prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "polytrack",
		subsystem:        "leaderboard",
		histogramBuckets: defaultLatencyBucketsMs,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.raceResults = m.counterVec("race_results_total",
		"Race result submissions by outcome (accepted, rejected, duplicate, failed)", "outcome")
	m.tracksUpserts = m.counterVec("track_upserts_total",
		"Track registry upserts by kind (created, updated, rejected)", "kind")
	m.lockChanges = m.counterVec("lock_changes_total",
		"Admin lock toggles by result", "result")

	m.rankingLatency = m.histogramVec("ranking_latency_milliseconds",
		"Leaderboard computation latency in milliseconds", "board")
	m.boardSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "track_board_size",
		Help:        "Distinct players on a track leaderboard at submission time",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
		ConstLabels: m.constLabels,
	})

	m.storeWriteLatency = m.histogramVec("store_write_latency_milliseconds",
		"Read-modify-write cycle latency per document in milliseconds", "document")
	m.storeWriteErrors = m.counterVec("store_write_errors_total",
		"Failed document writes", "document")
	m.storeCorruptReads = m.counterVec("store_corrupt_reads_total",
		"Documents that failed to decode and were read as empty", "document")
	m.writerQueueDepth = m.gaugeVec("writer_queue_depth",
		"Pending jobs on a document writer", "document")
	m.documentRecords = m.gaugeVec("document_records",
		"Records held by a document after its last write", "document")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and error type", "endpoint", "method", "error_type")
	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limited_total",
		Help:        "Requests rejected by the per-client rate limiter",
		ConstLabels: m.constLabels,
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_alloc_bytes",
		Help:        "Heap bytes currently allocated",
		ConstLabels: m.constLabels,
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of live goroutines",
		ConstLabels: m.constLabels,
	})
}

// RecordRaceResult counts a submission outcome.
func RecordRaceResult(outcome string) {
	globalManager.raceResults.WithLabelValues(outcome).Inc()
}

// RecordTrackUpsert counts a registry upsert.
func RecordTrackUpsert(kind string) {
	globalManager.tracksUpserts.WithLabelValues(kind).Inc()
}

// RecordLockChange counts an admin lock attempt.
func RecordLockChange(result string) {
	globalManager.lockChanges.WithLabelValues(result).Inc()
}

// RecordRankingLatency records how long a leaderboard took to compute.
func RecordRankingLatency(board string, latencyMs float64) {
	globalManager.rankingLatency.WithLabelValues(board).Observe(latencyMs)
}

// RecordBoardSize records a track leaderboard size.
func RecordBoardSize(size int) {
	globalManager.boardSize.Observe(float64(size))
}

// RecordStoreWriteLatency records a read-modify-write cycle.
func RecordStoreWriteLatency(document string, latencyMs float64) {
	globalManager.storeWriteLatency.WithLabelValues(document).Observe(latencyMs)
}

// RecordStoreWriteError counts a failed write.
func RecordStoreWriteError(document string) {
	globalManager.storeWriteErrors.WithLabelValues(document).Inc()
}

// RecordStoreCorruptRead counts a document that could not be decoded.
func RecordStoreCorruptRead(document string) {
	globalManager.storeCorruptReads.WithLabelValues(document).Inc()
}

// UpdateWriterQueueDepth sets the pending job count for a document writer.
func UpdateWriterQueueDepth(document string, depth int) {
	globalManager.writerQueueDepth.WithLabelValues(document).Set(float64(depth))
}

// UpdateDocumentRecords sets the record count of a document.
func UpdateDocumentRecords(document string, count int) {
	globalManager.documentRecords.WithLabelValues(document).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// UpdateSystemMemoryUsage updates the memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
