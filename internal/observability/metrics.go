package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkfeed_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FeedQueryLatency records feed query latency by scope and sort mode.
	FeedQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkfeed_feed_query_latency_seconds",
		Help:    "Feed query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope", "sort"})

	// FeedInvalidCursors counts cursors that failed to decode.
	FeedInvalidCursors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkfeed_feed_invalid_cursors_total",
		Help: "Total number of feed requests carrying an undecodable cursor",
	})

	// ToggleOutcomes counts interaction toggles by kind and outcome.
	ToggleOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkfeed_toggle_outcomes_total",
		Help: "Interaction toggles by kind and outcome",
	}, []string{"kind", "outcome"})

	// ToggleRetries counts conflict retries inside the interaction coordinator.
	ToggleRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkfeed_toggle_retries_total",
		Help: "Interaction toggle attempts retried after a store conflict",
	}, []string{"kind"})

	// SchedulerActive is the number of tasks currently executing.
	SchedulerActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inkfeed_scheduler_active_tasks",
		Help: "Tasks currently executing in the bounded scheduler",
	}, []string{"scheduler"})

	// SchedulerQueued is the number of tasks waiting for a slot, by priority.
	SchedulerQueued = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inkfeed_scheduler_queued_tasks",
		Help: "Tasks waiting for an execution slot",
	}, []string{"scheduler", "priority"})

	// SchedulerWait records the time tasks spend queued before admission.
	SchedulerWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkfeed_scheduler_queue_wait_seconds",
		Help:    "Time between submission and admission",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
	}, []string{"scheduler", "priority"})

	// SchedulerFailures counts tasks that returned an error or panicked.
	SchedulerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkfeed_scheduler_task_failures_total",
		Help: "Scheduled tasks that failed",
	}, []string{"scheduler", "priority"})

	// StorageDeleteFailures counts swallowed best-effort object deletions.
	StorageDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkfeed_storage_delete_failures_total",
		Help: "Object storage deletions that failed and were ignored",
	})
)

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// NewHTTPMetrics returns the Fiber Prometheus middleware. The collectors
// live in the default registry, so only the first serviceName is used.
func NewHTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
