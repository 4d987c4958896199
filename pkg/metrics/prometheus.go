// Package metrics provides Prometheus metrics for the ACE rating service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Team outcomes of a batch run.
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Rating engine
	teamsProcessed     *prometheus.CounterVec
	teamComputeLatency prometheus.Histogram
	batchRuns          *prometheus.CounterVec
	batchDuration      prometheus.Histogram
	batchLastUnix      prometheus.Gauge
	rulesetFallbacks   prometheus.Counter
	duplicateJobs      prometheus.Counter

	// Match source
	sourceRequests *prometheus.CounterVec
	sourceLatency  prometheus.Histogram
	sourceRetries  prometheus.Counter
	matchCacheHits prometheus.Counter
	matchCacheMiss prometheus.Counter

	// Rating store
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workersBusy        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ace",
		subsystem:        "ratings",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
	}
	histogramVec := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets}, labels)
	}

	m.teamsProcessed = counterVec("teams_processed_total", "Teams processed by batch and single-team runs, by outcome", "outcome")
	m.teamComputeLatency = histogram("team_compute_latency_milliseconds", "Wall time to fetch, rate and persist one team-season")
	m.batchRuns = counterVec("batch_runs_total", "Season batch runs by year", "year")
	m.batchDuration = histogram("batch_duration_milliseconds", "Duration of season batch runs")
	m.batchLastUnix = gauge("batch_last_completed_unix", "Unix time of the last completed batch run")
	m.rulesetFallbacks = counter("ruleset_fallbacks_total", "Ruleset lookups that fell back to the newest season")
	m.duplicateJobs = counter("duplicate_jobs_total", "Team jobs dropped because the team was already queued in the run")

	m.sourceRequests = counterVec("source_requests_total", "Match source requests by endpoint and status", "endpoint", "status")
	m.sourceLatency = histogram("source_latency_milliseconds", "Match source request latency")
	m.sourceRetries = counter("source_retries_total", "Retried I/O attempts")
	m.matchCacheHits = counter("match_cache_hits_total", "Event match lists served from the run cache")
	m.matchCacheMiss = counter("match_cache_misses_total", "Event match lists fetched from the source")

	m.storeOperations = counterVec("store_operations_total", "Rating store operations by name and result", "op", "result")
	m.storeLatency = histogramVec("store_latency_milliseconds", "Rating store operation latency", "op")

	m.queueSize = gauge("queue_size", "Team jobs waiting in the queue")
	m.queueCapacity = gauge("queue_capacity", "Capacity of the team job queue")
	m.queueEnqueued = counter("queue_enqueued_total", "Team jobs enqueued")
	m.queueEnqueueErrors = counterVec("queue_enqueue_errors_total", "Team jobs rejected by the queue", "reason")
	m.workerCount = gauge("worker_count", "Configured rating workers")
	m.workersBusy = gauge("workers_busy", "Workers currently rating a team")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.httpErrors = counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordTeamOutcome counts a processed team by outcome.
func RecordTeamOutcome(outcome string) {
	globalManager.teamsProcessed.WithLabelValues(outcome).Inc()
}

// RecordTeamComputeLatency records one team's processing time.
func RecordTeamComputeLatency(latencyMs float64) {
	globalManager.teamComputeLatency.Observe(latencyMs)
}

// RecordBatchRun records a completed batch run.
func RecordBatchRun(year int, durationMs float64, completedUnix int64) {
	globalManager.batchRuns.WithLabelValues(strconv.Itoa(year)).Inc()
	globalManager.batchDuration.Observe(durationMs)
	globalManager.batchLastUnix.Set(float64(completedUnix))
}

// RecordRulesetFallback counts an unknown-year ruleset fallback.
func RecordRulesetFallback() {
	globalManager.rulesetFallbacks.Inc()
}

// RecordDuplicateJob counts a team job dropped as a duplicate.
func RecordDuplicateJob() {
	globalManager.duplicateJobs.Inc()
}

// RecordSourceRequest counts a match source request.
func RecordSourceRequest(endpoint string, status int, latencyMs float64) {
	globalManager.sourceRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	globalManager.sourceLatency.Observe(latencyMs)
}

// RecordRetry counts one retried I/O attempt.
func RecordRetry() {
	globalManager.sourceRetries.Inc()
}

// RecordMatchCache counts a run cache lookup.
func RecordMatchCache(hit bool) {
	if hit {
		globalManager.matchCacheHits.Inc()
		return
	}
	globalManager.matchCacheMiss.Inc()
}

// RecordStoreOperation counts a store operation and its latency.
func RecordStoreOperation(op string, err error, latencyMs float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	globalManager.storeOperations.WithLabelValues(op, result).Inc()
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkersBusy adjusts the busy worker gauge by delta.
func AddWorkersBusy(delta int) {
	globalManager.workersBusy.Add(float64(delta))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
