package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator's Prometheus instrumentation: queue
// depth, active workers, claim latency, and the rate of progress events
// flowing out over the event bus. Grounded on the teacher's
// promauto.With(registry) registration idiom in internal/monitoring, but
// scoped to the orchestrator's own concerns instead of the teacher's
// HTTP/auth/business metric set.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	ActiveWorkers   prometheus.Gauge
	ClaimLatency    prometheus.Histogram
	JobsCompleted   *prometheus.CounterVec
	JobsFailed      *prometheus.CounterVec
	ProgressEvents  prometheus.Counter
}

// NewMetrics registers the orchestrator's metrics against registry. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across package-level test runs.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		QueueDepth: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Namespace: "loopforge",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Number of jobs currently PENDING.",
		}),
		ActiveWorkers: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Namespace: "loopforge",
			Subsystem: "jobs",
			Name:      "active_workers",
			Help:      "Number of worker slots currently occupied by a running job.",
		}),
		ClaimLatency: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Namespace: "loopforge",
			Subsystem: "jobs",
			Name:      "claim_latency_seconds",
			Help:      "Time between a job's created_at and the moment it was claimed.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		JobsCompleted: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopforge",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Total number of jobs that finished COMPLETED, by type.",
		}, []string{"type"}),
		JobsFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopforge",
			Subsystem: "jobs",
			Name:      "failed_total",
			Help:      "Total number of jobs that finished FAILED, by type.",
		}, []string{"type"}),
		ProgressEvents: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Namespace: "loopforge",
			Subsystem: "jobs",
			Name:      "progress_events_total",
			Help:      "Total number of progress events published to the event bus.",
		}),
	}
}

// observeClaim records the delay between a job being created and claimed.
func (m *Metrics) observeClaim(createdAt time.Time) {
	if m == nil {
		return
	}
	m.ClaimLatency.Observe(time.Since(createdAt).Seconds())
}
