// Package metrics provides Prometheus metrics for the Athlemetry processing service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values shared by callers.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	submissionsProcessed   *prometheus.CounterVec
	processingLatency      prometheus.Histogram
	benchmarkRecalculation prometheus.Histogram
	submissionsByStatus    *prometheus.GaugeVec
	batchRuns              prometheus.Counter
	batchItems             *prometheus.CounterVec
	claimConflicts         prometheus.Counter

	// Intake and retention
	uploads        *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	videoPurges    *prometheus.CounterVec
	storageOps     *prometheus.CounterVec
	repositoryLatc prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "athlemetry",
		subsystem:        "pipeline",
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

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.submissionsProcessed = m.counterVec("submissions_processed_total",
		"Processing attempts by resulting status", "status")
	m.processingLatency = m.histogram("processing_latency_milliseconds",
		"Duration of one processing attempt in milliseconds")
	m.benchmarkRecalculation = m.histogram("benchmark_recalculation_milliseconds",
		"Duration of a cohort benchmark recalculation in milliseconds")
	m.submissionsByStatus = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "submissions_by_status",
		Help: "Current number of submissions in each lifecycle state", ConstLabels: m.constLabels,
	}, []string{"status"})
	m.batchRuns = m.counter("batch_runs_total", "Processing batch runs")
	m.batchItems = m.counterVec("batch_items_total", "Batch items by outcome", "outcome")
	m.claimConflicts = m.counter("claim_conflicts_total",
		"Processing requests skipped because another worker held the submission")

	m.uploads = m.counterVec("uploads_total", "Video uploads by result", "result")
	m.uploadBytes = m.counter("upload_bytes_total", "Bytes of accepted video uploads")
	m.videoPurges = m.counterVec("video_purges_total", "Video purge attempts by trigger and result", "trigger", "result")
	m.storageOps = m.counterVec("storage_operations_total",
		"Object storage operations by provider, operation and result", "provider", "operation", "result")
	m.repositoryLatc = m.histogram("repository_query_latency_milliseconds",
		"Database query latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Jobs currently buffered in the batch queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the batch queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Configured batch workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time a worker spends on one job in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Jobs whose handler returned an error")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status code", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
	m.errorsByEndpoint = m.counterVec("endpoint_errors_total",
		"HTTP errors by endpoint, method and type", "endpoint", "method", "type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds")
}

// RecordSubmissionProcessed counts one processing attempt ending in status.
func RecordSubmissionProcessed(status string) {
	globalManager.submissionsProcessed.WithLabelValues(status).Inc()
}

// RecordProcessingLatency records the duration of one processing attempt.
func RecordProcessingLatency(latencyMs float64) {
	globalManager.processingLatency.Observe(latencyMs)
}

// RecordBenchmarkRecalculation records the duration of a cohort recalculation.
func RecordBenchmarkRecalculation(latencyMs float64) {
	globalManager.benchmarkRecalculation.Observe(latencyMs)
}

// UpdateSubmissionsByStatus sets the number of submissions in status.
func UpdateSubmissionsByStatus(status string, count int64) {
	globalManager.submissionsByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordBatchRun counts a batch run and its item outcomes.
func RecordBatchRun(completed, failed int) {
	globalManager.batchRuns.Inc()
	globalManager.batchItems.WithLabelValues("completed").Add(float64(completed))
	globalManager.batchItems.WithLabelValues("failed").Add(float64(failed))
}

// RecordClaimConflict counts a submission skipped because it was already claimed.
func RecordClaimConflict() {
	globalManager.claimConflicts.Inc()
}

// RecordUpload counts an upload attempt; bytes are added on success only.
func RecordUpload(result string, bytes int64) {
	globalManager.uploads.WithLabelValues(result).Inc()
	if result == ResultSuccess && bytes > 0 {
		globalManager.uploadBytes.Add(float64(bytes))
	}
}

// RecordVideoPurge counts a purge attempt.
func RecordVideoPurge(trigger, result string) {
	globalManager.videoPurges.WithLabelValues(trigger, result).Inc()
}

// RecordStorageOperation counts an object storage call.
func RecordStorageOperation(provider, operation, result string) {
	globalManager.storageOps.WithLabelValues(provider, operation, result).Inc()
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryLatc.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
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
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
