// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	DispatchPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dispatch_pass_duration_seconds",
			Help: "Duration of a full dispatch pass in seconds",
		},
	)

	DispatchCandidatesNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_candidates_notified_total",
			Help: "Total number of candidates notified across dispatch passes",
		},
	)

	DispatchCandidatesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_candidates_suppressed_total",
			Help: "Total number of shortlisted candidates suppressed, by reason",
		},
		[]string{"reason"},
	)

	PushSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_send_failures_total",
			Help: "Total number of failed push deliveries, by provider",
		},
		[]string{"provider"},
	)
)
