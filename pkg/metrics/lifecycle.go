package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics counts state transitions flowing through the engine.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_total",
		Help: "Completed lifecycle transitions by operation.",
	}, []string{"operation"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_conflicts_total",
		Help: "Lifecycle operations rejected because the aggregate was not in the required state.",
	}, []string{"operation"})
	reg.MustRegister(transitions, conflicts)
	return &LifecycleMetrics{
		transitions: transitions,
		conflicts:   conflicts,
	}
}

// IncTransition increments the transition counter for the named operation.
func (l *LifecycleMetrics) IncTransition(operation string) {
	if l == nil || l.transitions == nil {
		return
	}
	l.transitions.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncConflict increments the conflict counter for the named operation.
func (l *LifecycleMetrics) IncConflict(operation string) {
	if l == nil || l.conflicts == nil {
		return
	}
	l.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// DispatcherMetrics records the behaviour of the outbox drain loop.
type DispatcherMetrics struct {
	batchDuration *prometheus.HistogramVec
	published     prometheus.Counter
	failed        prometheus.Counter
}

// NewDispatcherMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatcher_batch_duration_seconds",
		Help:    "Duration of one outbox drain batch in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_events_published_total",
		Help: "Outbox events successfully turned into notifications.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_events_failed_total",
		Help: "Outbox events whose dispatch attempt failed.",
	})
	reg.MustRegister(batchDuration, published, failed)
	return &DispatcherMetrics{
		batchDuration: batchDuration,
		published:     published,
		failed:        failed,
	}
}

// ObserveBatch records the duration of one drain batch for the named worker.
func (d *DispatcherMetrics) ObserveBatch(worker string, duration time.Duration) {
	if d == nil || d.batchDuration == nil {
		return
	}
	d.batchDuration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

// IncPublished increments the published event counter.
func (d *DispatcherMetrics) IncPublished() {
	if d == nil || d.published == nil {
		return
	}
	d.published.Inc()
}

// IncFailed increments the failed event counter.
func (d *DispatcherMetrics) IncFailed() {
	if d == nil || d.failed == nil {
		return
	}
	d.failed.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
