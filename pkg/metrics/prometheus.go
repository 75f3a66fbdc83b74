// Package metrics provides Prometheus metrics for the classtwin
// aggregation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Tick pipeline
	ticksProcessed prometheus.Counter
	ticksSkipped   prometheus.Counter
	tickLatency    prometheus.Histogram
	entityCount    prometheus.Gauge

	// Alerts
	alertsTotal *prometheus.CounterVec

	// Attendance
	attendancePresent    prometheus.Gauge
	attendanceRegistered prometheus.Gauge
	sessionActive        prometheus.Gauge

	// Advisory cache
	advisoryRefreshes      prometheus.Counter
	advisoryRefreshErrors  prometheus.Counter
	advisoryRefreshLatency prometheus.Histogram
	advisoryAge            prometheus.Gauge

	// Frame ingestion
	frameQueueSize    prometheus.Gauge
	framesDropped     prometheus.Counter
	frameDecodeErrors prometheus.Counter
	malformedEntities prometheus.Counter

	// Publisher
	statesPublished prometheus.Counter
	statesDropped   prometheus.Counter
	subscriberCount prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "classtwin",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.ticksProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_processed_total",
		Help:      "Total number of snapshots folded into the aggregate state",
	})
	m.ticksSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_skipped_total",
		Help:      "Total number of snapshots skipped while processing was paused",
	})
	m.tickLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tick_latency_milliseconds",
		Help:      "Histogram of aggregation tick latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.entityCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entities",
		Help:      "Number of entities detected in the most recent snapshot",
	})

	m.alertsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_total",
		Help:      "Total number of alerts emitted, by kind",
	}, []string{"kind"})

	m.attendancePresent = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_present",
		Help:      "Entities present in the latest observed snapshot of the session",
	})
	m.attendanceRegistered = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_registered",
		Help:      "Registered count of the active attendance session",
	})
	m.sessionActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_active",
		Help:      "Whether an attendance session is active (1) or not (0)",
	})

	m.advisoryRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advisory_refreshes_total",
		Help:      "Total number of successful advisory refreshes",
	})
	m.advisoryRefreshErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advisory_refresh_errors_total",
		Help:      "Total number of advisory refreshes recovered by the cache",
	})
	m.advisoryRefreshLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advisory_refresh_latency_milliseconds",
		Help:      "Histogram of advisory refresh latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.advisoryAge = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advisory_age_seconds",
		Help:      "Age of the cached advisory in seconds",
	})

	m.frameQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_queue_size",
		Help:      "Number of snapshots waiting for the aggregation worker",
	})
	m.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_dropped_total",
		Help:      "Total number of frames dropped because the queue was full",
	})
	m.frameDecodeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_decode_errors_total",
		Help:      "Total number of frames skipped as undecodable",
	})
	m.malformedEntities = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_entities_total",
		Help:      "Total number of bodies skipped as structurally invalid",
	})

	m.statesPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "states_published_total",
		Help:      "Total number of aggregated states published to the bus",
	})
	m.statesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "states_dropped_total",
		Help:      "Total number of state deliveries dropped on slow subscribers",
	})
	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribers",
		Help:      "Number of registered state bus subscribers",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current memory usage in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Histogram of GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Tick pipeline helpers.

// RecordTickProcessed increments the processed tick counter.
func RecordTickProcessed() {
	globalManager.ticksProcessed.Inc()
}

// RecordTickSkipped increments the skipped tick counter.
func RecordTickSkipped() {
	globalManager.ticksSkipped.Inc()
}

// RecordTickLatency records one tick's latency in milliseconds.
func RecordTickLatency(latencyMs float64) {
	globalManager.tickLatency.Observe(latencyMs)
}

// UpdateEntityCount sets the latest snapshot's entity count.
func UpdateEntityCount(count int) {
	globalManager.entityCount.Set(float64(count))
}

// RecordAlert increments the alert counter for a kind.
func RecordAlert(kind string) {
	globalManager.alertsTotal.WithLabelValues(kind).Inc()
}

// Attendance helpers.

// UpdateAttendance sets the present/registered gauges.
func UpdateAttendance(present, registered int) {
	globalManager.attendancePresent.Set(float64(present))
	globalManager.attendanceRegistered.Set(float64(registered))
}

// UpdateSessionActive sets the session state gauge.
func UpdateSessionActive(active bool) {
	if active {
		globalManager.sessionActive.Set(1)
		return
	}
	globalManager.sessionActive.Set(0)
}

// Advisory helpers.

// RecordAdvisoryRefresh increments the successful refresh counter.
func RecordAdvisoryRefresh() {
	globalManager.advisoryRefreshes.Inc()
}

// RecordAdvisoryRefreshError increments the recovered refresh failure counter.
func RecordAdvisoryRefreshError() {
	globalManager.advisoryRefreshErrors.Inc()
}

// RecordAdvisoryRefreshLatency records one refresh's latency in milliseconds.
func RecordAdvisoryRefreshLatency(latencyMs float64) {
	globalManager.advisoryRefreshLatency.Observe(latencyMs)
}

// UpdateAdvisoryAge sets the cached advisory's age in seconds.
func UpdateAdvisoryAge(seconds float64) {
	globalManager.advisoryAge.Set(seconds)
}

// Frame ingestion helpers.

// UpdateFrameQueueSize sets the frame queue depth gauge.
func UpdateFrameQueueSize(size int) {
	globalManager.frameQueueSize.Set(float64(size))
}

// RecordFrameDropped increments the dropped frame counter.
func RecordFrameDropped() {
	globalManager.framesDropped.Inc()
}

// RecordFrameDecodeError increments the undecodable frame counter.
func RecordFrameDecodeError() {
	globalManager.frameDecodeErrors.Inc()
}

// RecordMalformedEntities adds skipped bodies to the malformed entity counter.
func RecordMalformedEntities(count int) {
	globalManager.malformedEntities.Add(float64(count))
}

// Publisher helpers.

// RecordStatePublished increments the published state counter.
func RecordStatePublished() {
	globalManager.statesPublished.Inc()
}

// RecordStateDropped increments the dropped delivery counter.
func RecordStateDropped() {
	globalManager.statesDropped.Inc()
}

// UpdateSubscriberCount sets the subscriber gauge.
func UpdateSubscriberCount(count int) {
	globalManager.subscriberCount.Set(float64(count))
}

// System helpers.

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
