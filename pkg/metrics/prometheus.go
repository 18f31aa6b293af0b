// Package metrics provides Prometheus metrics for the team formation service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Solve lifecycle
	solvesStarted   prometheus.Counter
	solvesCompleted prometheus.Counter
	solvesFailed    prometheus.Counter
	solvesTimedOut  prometheus.Counter
	solvesRejected  prometheus.Counter
	activeSolves    prometheus.Gauge

	// Solve quality and timing
	modelBuildDuration prometheus.Histogram
	solveDuration      prometheus.Histogram
	lastObjective      prometheus.Gauge
	solutionsFound     prometheus.Counter

	// Progress streaming
	progressEvents    prometheus.Counter
	progressDropped   prometheus.Counter
	progressQueueSize prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager and registers all collectors on its registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cohort",
		subsystem:        "formation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gauge := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	histogram := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}
	}

	m.solvesStarted = prometheus.NewCounter(factory("solves_started_total", "Solve attempts started."))
	m.solvesCompleted = prometheus.NewCounter(factory("solves_completed_total", "Solves that produced a solution."))
	m.solvesFailed = prometheus.NewCounter(factory("solves_failed_total", "Solves that ended without a solution."))
	m.solvesTimedOut = prometheus.NewCounter(factory("solves_timed_out_total", "Solves stopped by the wall-clock budget without a solution."))
	m.solvesRejected = prometheus.NewCounter(factory("solves_rejected_total", "Solve requests rejected by validation or backpressure."))
	m.activeSolves = prometheus.NewGauge(gauge("active_solves", "Solves currently running."))

	m.modelBuildDuration = prometheus.NewHistogram(histogram(
		"model_build_duration_seconds", "Time spent constructing the optimization model.", m.histogramBuckets))
	m.solveDuration = prometheus.NewHistogram(histogram(
		"solve_duration_seconds", "Wall time of the solving step.",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}))
	m.lastObjective = prometheus.NewGauge(gauge("last_objective_value", "Objective value of the most recent solution."))
	m.solutionsFound = prometheus.NewCounter(factory("solutions_found_total", "Improved candidate solutions reported by the engine."))

	m.progressEvents = prometheus.NewCounter(factory("progress_events_total", "Progress events delivered to consumers."))
	m.progressDropped = prometheus.NewCounter(factory("progress_events_dropped_total", "Progress events dropped because the queue was full."))
	m.progressQueueSize = prometheus.NewGauge(gauge("progress_queue_size", "Progress events currently buffered."))

	m.httpRequests = prometheus.NewCounterVec(factory("http_requests_total", "HTTP requests by endpoint, method and status."),
		[]string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(histogram(
		"http_request_duration_ms", "HTTP request latency in milliseconds.",
		[]float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000, 120000}),
		[]string{"endpoint", "method", "status"})

	m.registry.MustRegister(
		m.solvesStarted, m.solvesCompleted, m.solvesFailed, m.solvesTimedOut,
		m.solvesRejected, m.activeSolves,
		m.modelBuildDuration, m.solveDuration, m.lastObjective, m.solutionsFound,
		m.progressEvents, m.progressDropped, m.progressQueueSize,
		m.httpRequests, m.httpRequestDuration,
	)

	return m
}

// Registry exposes the manager's registry for HTTP serving.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide Manager, creating it on first use.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// GetRegistry returns the default manager's registry.
func GetRegistry() *prometheus.Registry { return Default().Registry() }

// Package-level helpers delegating to the default manager.

func RecordSolveStarted()   { Default().solvesStarted.Inc(); Default().activeSolves.Inc() }
func RecordSolveCompleted() { Default().solvesCompleted.Inc(); Default().activeSolves.Dec() }
func RecordSolveFailed()    { Default().solvesFailed.Inc(); Default().activeSolves.Dec() }
func RecordSolveTimedOut()  { Default().solvesTimedOut.Inc(); Default().activeSolves.Dec() }
func RecordSolveRejected()  { Default().solvesRejected.Inc() }

func RecordModelBuildDuration(seconds float64) { Default().modelBuildDuration.Observe(seconds) }
func RecordSolveDuration(seconds float64)      { Default().solveDuration.Observe(seconds) }
func UpdateLastObjective(v float64)            { Default().lastObjective.Set(v) }
func RecordSolutionFound()                     { Default().solutionsFound.Inc() }

func RecordProgressEvent()          { Default().progressEvents.Inc() }
func RecordProgressDropped()        { Default().progressDropped.Inc() }
func UpdateProgressQueueSize(n int) { Default().progressQueueSize.Set(float64(n)) }

func RecordHTTPRequest(endpoint, method, status string) {
	Default().httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	Default().httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}
