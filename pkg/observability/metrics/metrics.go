package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeReady labels jobs that produced a full result set.
	OutcomeReady = "ready"
	// OutcomeFailed labels jobs that surfaced a fault.
	OutcomeFailed = "failed"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalpath_inference",
			Name:      "jobs_total",
			Help:      "Total number of assessment jobs finished, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	jobFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalpath_inference",
			Name:      "job_failures_total",
			Help:      "Failed assessment jobs, partitioned by error class and pipeline stage.",
		},
		[]string{"class", "stage"},
	)

	stageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vitalpath_inference",
			Name:      "stage_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	stageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalpath_inference",
			Name:      "stage_retries_total",
			Help:      "Stage attempts retried after a resource fault.",
		},
		[]string{"stage"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vitalpath_inference",
			Name:      "queue_depth",
			Help:      "Jobs admitted but not yet picked up by a worker.",
		},
	)

	activeJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vitalpath_inference",
			Name:      "active_jobs",
			Help:      "Jobs currently executing in the pipeline.",
		},
	)
)

// Register attaches the pipeline collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		jobsTotal,
		jobFailures,
		stageSeconds,
		stageRetries,
		queueDepth,
		activeJobs,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveJob records a finished job with its outcome label.
func ObserveJob(outcome string) {
	label := outcome
	if label != OutcomeFailed {
		label = OutcomeReady
	}
	jobsTotal.WithLabelValues(label).Inc()
}

// ObserveFailure records the class and stage of a surfaced fault.
func ObserveFailure(class, stage string) {
	jobFailures.WithLabelValues(class, stage).Inc()
}

// ObserveStage records one stage execution.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRetry records a retried stage attempt.
func ObserveRetry(stage string) {
	stageRetries.WithLabelValues(stage).Inc()
}

// SetQueueDepth reports the current admission queue backlog.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// JobStarted and JobFinished track the live worker occupancy.
func JobStarted() {
	activeJobs.Inc()
}

func JobFinished() {
	activeJobs.Dec()
}
