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

	// QuotesComputed counts priced quotes by source (worker, http) and
	// outcome (quoted, zero, invalid_tenure).
	QuotesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_quotes_computed_total",
			Help: "Total number of loan quotes computed",
		},
		[]string{"source", "outcome"},
	)

	ScheduleLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repayment_schedule_loads_total",
			Help: "Repayment schedule loads by origin (cache, database, default)",
		},
		[]string{"origin"},
	)

	ScheduleSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repayment_schedule_saves_total",
			Help: "Total number of repayment schedule replacements",
		},
	)

	ApplicationStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_application_status_changes_total",
			Help: "Application status transitions by target status",
		},
		[]string{"status"},
	)
)

// QuoteOutcome labels a computed installment for QuotesComputed.
func QuoteOutcome(monthly float64) string {
	if monthly > 0 {
		return "quoted"
	}
	return "zero"
}
