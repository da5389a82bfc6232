package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobRunsTotal, jobRunDuration) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Periodic job runs, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: 'completed', 'failed', 'skipped'
	)

	jobRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_run_seconds",
			Help:    "Wall time of periodic job runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"job"},
	)
)

func ObserveJobRun(job, status string, elapsed time.Duration) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
	if status != "skipped" {
		jobRunDuration.WithLabelValues(norm(job)).Observe(elapsed.Seconds())
	}
}
