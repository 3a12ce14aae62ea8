// Package metrics provides Prometheus metrics for the shotcoach service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Coaching
	coachingRequests    *prometheus.CounterVec
	suggestionsReturned *prometheus.CounterVec
	coachingLatency     *prometheus.HistogramVec
	extractionLabels    *prometheus.CounterVec

	// Cache
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheSize      prometheus.Gauge

	// Alternate provider
	providerRequests *prometheus.CounterVec
	providerLatency  prometheus.Histogram

	// Snapshots
	snapshotsStored   prometheus.Gauge
	snapshotRefreshes *prometheus.CounterVec
	snapshotsStale    prometheus.Counter
	repositoryLatency *prometheus.HistogramVec

	// Refresh pipeline
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	pendingRefreshes        prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "shotcoach",
		subsystem:        "coach",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.coachingRequests = auto.NewCounterVec(m.counterOpts("requests_total", "Coaching requests by mode and outcome"), []string{"mode", "outcome"})
	m.suggestionsReturned = auto.NewCounterVec(m.counterOpts("suggestions_total", "Suggestions returned by field and source"), []string{"field", "source"})
	m.coachingLatency = auto.NewHistogramVec(m.histogramOpts("latency_milliseconds", "Time to produce a coaching snapshot"), []string{"mode"})
	m.extractionLabels = auto.NewCounterVec(m.counterOpts("extraction_labels_total", "Extraction classifications by label"), []string{"label"})

	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "Snapshots served from the TTL cache"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "Cache lookups that had to recompute"))
	m.cacheEvictions = auto.NewCounter(m.counterOpts("cache_evictions_total", "Entries removed for age or capacity"))
	m.cacheSize = auto.NewGauge(m.gaugeOpts("cache_entries", "Entries currently cached"))

	m.providerRequests = auto.NewCounterVec(m.counterOpts("provider_requests_total", "Alternate provider calls by result"), []string{"provider", "result"})
	m.providerLatency = auto.NewHistogram(m.histogramOpts("provider_latency_milliseconds", "Alternate provider round trip time"))

	m.snapshotsStored = auto.NewGauge(m.gaugeOpts("snapshots_stored", "Snapshots held by the repository"))
	m.snapshotRefreshes = auto.NewCounterVec(m.counterOpts("snapshot_refreshes_total", "Snapshot regenerations by result"), []string{"result"})
	m.snapshotsStale = auto.NewCounter(m.counterOpts("snapshots_stale_total", "Snapshots found stale by a sweep"))
	m.repositoryLatency = auto.NewHistogramVec(m.histogramOpts("repository_latency_milliseconds", "Repository operation latency"), []string{"op"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("refresh_queue_size", "Refresh jobs waiting"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("refresh_queue_capacity", "Refresh queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("refresh_enqueued_total", "Refresh jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("refresh_dequeued_total", "Refresh jobs handed to workers"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("refresh_enqueue_errors_total", "Refresh jobs rejected by the queue"))
	m.pendingRefreshes = auto.NewGauge(m.gaugeOpts("refresh_pending", "Shots with a refresh in flight"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("refresh_workers", "Refresh workers running"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("refresh_latency_milliseconds", "Time to refresh one snapshot"))
	m.workerErrors = auto.NewCounter(m.counterOpts("refresh_errors_total", "Refresh jobs that failed"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total", "Errors by component and type"), []string{"component", "type"})
}

// RecordCoachingRequest counts one coaching request for mode ending in outcome
// ("computed", "cached" or "error").
func RecordCoachingRequest(mode, outcome string) {
	globalManager.coachingRequests.WithLabelValues(mode, outcome).Inc()
}

// RecordSuggestion counts one returned suggestion.
func RecordSuggestion(field, source string) {
	globalManager.suggestionsReturned.WithLabelValues(field, source).Inc()
}

// RecordCoachingLatency records the time spent computing a snapshot.
func RecordCoachingLatency(mode string, latencyMs float64) {
	globalManager.coachingLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordExtractionLabel counts one classification.
func RecordExtractionLabel(label string) {
	globalManager.extractionLabels.WithLabelValues(label).Inc()
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheEviction increments the eviction counter.
func RecordCacheEviction() {
	globalManager.cacheEvictions.Inc()
}

// UpdateCacheSize sets the number of cached entries.
func UpdateCacheSize(size int) {
	globalManager.cacheSize.Set(float64(size))
}

// RecordProviderRequest counts an alternate provider call with result "ok" or "error".
func RecordProviderRequest(provider, result string) {
	globalManager.providerRequests.WithLabelValues(provider, result).Inc()
}

// RecordProviderLatency records an alternate provider round trip.
func RecordProviderLatency(latencyMs float64) {
	globalManager.providerLatency.Observe(latencyMs)
}

// UpdateSnapshotsStored sets the repository size.
func UpdateSnapshotsStored(count int) {
	globalManager.snapshotsStored.Set(float64(count))
}

// RecordSnapshotRefresh counts a regeneration with result "ok" or "error".
func RecordSnapshotRefresh(result string) {
	globalManager.snapshotRefreshes.WithLabelValues(result).Inc()
}

// RecordSnapshotStale counts a snapshot found stale.
func RecordSnapshotStale() {
	globalManager.snapshotsStale.Inc()
}

// RecordRepositoryLatency records a repository operation.
func RecordRepositoryLatency(op string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current refresh queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the refresh queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
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

// UpdatePendingRefreshes sets the number of shots with a refresh in flight.
func UpdatePendingRefreshes(count int64) {
	globalManager.pendingRefreshes.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running refresh workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records the time to refresh one snapshot.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the refresh error counter.
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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
