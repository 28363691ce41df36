package lock

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ArdentAILabs/benchlock/types"
)

// Metrics records operational data for lock operations.
// All methods must be safe for concurrent use.
type Metrics interface {
	// IncrAcquireAttempt counts a single TryAcquire round-trip and whether
	// it was granted.
	IncrAcquireAttempt(resource types.ResourceID, granted bool)

	// ObserveAcquireWait records how long AcquireLock blocked overall and
	// whether it ended in acquisition or timeout.
	ObserveAcquireWait(resource types.ResourceID, wait time.Duration, acquired bool)

	// IncrReleaseRequest counts a release and whether a record was deleted.
	IncrReleaseRequest(resource types.ResourceID, released bool)

	// ObserveHoldDuration records how long a WithLock critical section held
	// the lock.
	ObserveHoldDuration(resource types.ResourceID, held time.Duration)

	// IncrCleanupRun counts a maintenance sweep and how many records it removed.
	IncrCleanupRun(deleted int)

	// IncrStorageError counts a storage coordinator failure by operation.
	IncrStorageError(op string, transient bool)
}

// NoOpMetrics implements Metrics without emitting anything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrAcquireAttempt(types.ResourceID, bool)                {}
func (NoOpMetrics) ObserveAcquireWait(types.ResourceID, time.Duration, bool) {}
func (NoOpMetrics) IncrReleaseRequest(types.ResourceID, bool)                {}
func (NoOpMetrics) ObserveHoldDuration(types.ResourceID, time.Duration)      {}
func (NoOpMetrics) IncrCleanupRun(int)                                       {}
func (NoOpMetrics) IncrStorageError(string, bool)                            {}

// PromMetrics implements Metrics backed by Prometheus collectors.
type PromMetrics struct {
	acquireAttempts *prometheus.CounterVec
	acquireWait     *prometheus.HistogramVec
	releases        *prometheus.CounterVec
	holdDuration    *prometheus.HistogramVec
	cleanupDeleted  prometheus.Counter
	storageErrors   *prometheus.CounterVec
}

// NewPromMetrics builds the collectors under the given namespace and
// registers them with reg.
func NewPromMetrics(namespace string, reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		acquireAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquire_attempts_total",
			Help:      "TryAcquire round-trips by resource and outcome",
		}, []string{"resource", "granted"}),
		acquireWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquire_wait_seconds",
			Help:      "Total time AcquireLock blocked before acquisition or timeout",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"resource", "acquired"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Release calls by resource and whether a record was deleted",
		}, []string{"resource", "released"}),
		holdDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hold_seconds",
			Help:      "How long scoped critical sections held a lock",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"resource"}),
		cleanupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deleted_total",
			Help:      "Expired records removed by maintenance sweeps",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Storage coordinator failures by operation",
		}, []string{"op", "transient"}),
	}

	reg.MustRegister(
		m.acquireAttempts,
		m.acquireWait,
		m.releases,
		m.holdDuration,
		m.cleanupDeleted,
		m.storageErrors,
	)
	return m
}

func (m *PromMetrics) IncrAcquireAttempt(resource types.ResourceID, granted bool) {
	m.acquireAttempts.WithLabelValues(string(resource), strconv.FormatBool(granted)).Inc()
}

func (m *PromMetrics) ObserveAcquireWait(resource types.ResourceID, wait time.Duration, acquired bool) {
	m.acquireWait.WithLabelValues(string(resource), strconv.FormatBool(acquired)).
		Observe(wait.Seconds())
}

func (m *PromMetrics) IncrReleaseRequest(resource types.ResourceID, released bool) {
	m.releases.WithLabelValues(string(resource), strconv.FormatBool(released)).Inc()
}

func (m *PromMetrics) ObserveHoldDuration(resource types.ResourceID, held time.Duration) {
	m.holdDuration.WithLabelValues(string(resource)).Observe(held.Seconds())
}

func (m *PromMetrics) IncrCleanupRun(deleted int) {
	m.cleanupDeleted.Add(float64(deleted))
}

func (m *PromMetrics) IncrStorageError(op string, transient bool) {
	m.storageErrors.WithLabelValues(op, strconv.FormatBool(transient)).Inc()
}
