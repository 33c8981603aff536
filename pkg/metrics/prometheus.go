// Package metrics provides Prometheus metrics for the reflection service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the reflection service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Reflection saves
	reflectionsSaved     *prometheus.CounterVec
	saveFailures         *prometheus.CounterVec
	reflectionsDuplicate prometheus.Counter
	saveLatency          prometheus.Histogram

	// Reads that degraded to an empty result
	retrievalDegraded *prometheus.CounterVec

	// Wellness extraction
	snapshotMerges    prometheus.Counter
	extractionReplays prometheus.Counter

	// Data store round trips
	storeLatency *prometheus.HistogramVec

	// Outbox
	outboxEnqueued      *prometheus.CounterVec
	outboxEnqueueErrors *prometheus.CounterVec
	outboxCompleted     *prometheus.CounterVec
	outboxRetries       *prometheus.CounterVec
	outboxDead          *prometheus.CounterVec
	outboxPending       prometheus.Gauge
	outboxDeadJobs      prometheus.Gauge

	// In-process hand-off queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "interpretreflect",
		subsystem:        "reflections",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.reflectionsSaved = auto.NewCounterVec(
		m.counterOpts("saved_total", "Reflections saved by the primary write"),
		[]string{"kind"},
	)
	m.saveFailures = auto.NewCounterVec(
		m.counterOpts("save_failures_total", "Reflection saves that failed, by reason"),
		[]string{"kind", "reason"},
	)
	m.reflectionsDuplicate = auto.NewCounter(
		m.counterOpts("duplicate_submissions_total", "Submissions acknowledged as duplicates"),
	)
	m.saveLatency = auto.NewHistogram(
		m.histogramOpts("save_latency_milliseconds", "Primary write latency in milliseconds"),
	)
	m.retrievalDegraded = auto.NewCounterVec(
		m.counterOpts("retrieval_degraded_total", "Reads that returned an empty result after a failure"),
		[]string{"operation"},
	)

	m.snapshotMerges = auto.NewCounter(
		m.counterOpts("snapshot_merges_total", "Weekly wellness snapshot merges"),
	)
	m.extractionReplays = auto.NewCounter(
		m.counterOpts("extraction_replays_total", "Extraction jobs skipped because the record was already processed"),
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Data store request latency in milliseconds"),
		[]string{"operation", "outcome"},
	)

	m.outboxEnqueued = auto.NewCounterVec(
		m.counterOpts("outbox_enqueued_total", "Background jobs written to the outbox"),
		[]string{"type"},
	)
	m.outboxEnqueueErrors = auto.NewCounterVec(
		m.counterOpts("outbox_enqueue_errors_total", "Background jobs that could not be written to the outbox"),
		[]string{"type"},
	)
	m.outboxCompleted = auto.NewCounterVec(
		m.counterOpts("outbox_completed_total", "Background jobs completed"),
		[]string{"type"},
	)
	m.outboxRetries = auto.NewCounterVec(
		m.counterOpts("outbox_retries_total", "Background job attempts that failed and were rescheduled"),
		[]string{"type"},
	)
	m.outboxDead = auto.NewCounterVec(
		m.counterOpts("outbox_dead_total", "Background jobs that exhausted their attempts"),
		[]string{"type"},
	)
	m.outboxPending = auto.NewGauge(
		m.gaugeOpts("outbox_pending", "Jobs waiting in the outbox"),
	)
	m.outboxDeadJobs = auto.NewGauge(
		m.gaugeOpts("outbox_dead_jobs", "Dead jobs currently kept in the outbox"),
	)

	m.queueSize = auto.NewGauge(
		m.gaugeOpts("queue_size", "Claimed jobs waiting for a worker"),
	)
	m.queueCapacity = auto.NewGauge(
		m.gaugeOpts("queue_capacity", "Capacity of the worker hand-off queue"),
	)

	m.workerCount = auto.NewGauge(
		m.gaugeOpts("worker_count", "Configured background workers"),
	)
	m.workerActiveCount = auto.NewGauge(
		m.gaugeOpts("worker_active_count", "Workers currently running a job"),
	)
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Job handler latency in milliseconds"),
	)
	m.workerErrors = auto.NewCounter(
		m.counterOpts("worker_errors_total", "Job handler failures"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds"),
	)
}

// RecordReflectionSaved increments the saved counter for kind.
func RecordReflectionSaved(kind string) {
	globalManager.reflectionsSaved.WithLabelValues(kind).Inc()
}

// RecordSaveFailure counts a failed save.
func RecordSaveFailure(kind, reason string) {
	globalManager.saveFailures.WithLabelValues(kind, reason).Inc()
}

// RecordDuplicateSubmission counts a submission acknowledged as a duplicate.
func RecordDuplicateSubmission() {
	globalManager.reflectionsDuplicate.Inc()
}

// RecordSaveLatency records primary write latency in milliseconds.
func RecordSaveLatency(latencyMs float64) {
	globalManager.saveLatency.Observe(latencyMs)
}

// RecordRetrievalDegraded counts a read that fell back to an empty result.
func RecordRetrievalDegraded(operation string) {
	globalManager.retrievalDegraded.WithLabelValues(operation).Inc()
}

// RecordSnapshotMerge counts a weekly snapshot merge.
func RecordSnapshotMerge() {
	globalManager.snapshotMerges.Inc()
}

// RecordExtractionReplay counts an extraction skipped as already applied.
func RecordExtractionReplay() {
	globalManager.extractionReplays.Inc()
}

// RecordStoreLatency records one data store round trip.
func RecordStoreLatency(operation, outcome string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation, outcome).Observe(latencyMs)
}

// RecordOutboxEnqueued counts a job written to the outbox.
func RecordOutboxEnqueued(jobType string) {
	globalManager.outboxEnqueued.WithLabelValues(jobType).Inc()
}

// RecordOutboxEnqueueError counts a job that could not be written.
func RecordOutboxEnqueueError(jobType string) {
	globalManager.outboxEnqueueErrors.WithLabelValues(jobType).Inc()
}

// RecordOutboxCompleted counts a completed job.
func RecordOutboxCompleted(jobType string) {
	globalManager.outboxCompleted.WithLabelValues(jobType).Inc()
}

// RecordOutboxRetry counts a failed attempt that was rescheduled.
func RecordOutboxRetry(jobType string) {
	globalManager.outboxRetries.WithLabelValues(jobType).Inc()
}

// RecordOutboxDead counts a job that exhausted its attempts.
func RecordOutboxDead(jobType string) {
	globalManager.outboxDead.WithLabelValues(jobType).Inc()
}

// UpdateOutboxDepth sets the pending and dead job gauges.
func UpdateOutboxDepth(pending, dead int) {
	globalManager.outboxPending.Set(float64(pending))
	globalManager.outboxDeadJobs.Set(float64(dead))
}

// UpdateQueueSize sets the hand-off queue gauges.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job handler latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
