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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// SagaOutcomes counts finished sagas. code is "OK" on success.
	SagaOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_outcomes_total",
			Help: "Saga executions by saga and result code",
		},
		[]string{"saga", "code"},
	)

	SagaDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saga_duration_seconds",
			Help:    "Saga execution time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"saga"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_notifications_total",
			Help: "Best-effort notifications by category and result",
		},
		[]string{"category", "result"},
	)

	ReconciliationsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_reconciliations_opened_total",
			Help: "Reconciliation records opened by kind",
		},
		[]string{"kind"},
	)

	ReconciliationsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_reconciliations_closed_total",
			Help: "Reconciliation records leaving the open state by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)
