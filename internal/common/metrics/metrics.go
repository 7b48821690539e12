// internal/common/metrics/metrics.go
package metrics

import (
	"time"

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

	OrchestratorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_requests_total",
			Help: "Orchestrated replies by outcome (ok, corrected, unavailable)",
		},
		[]string{"outcome"},
	)

	OrchestratorStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_stage_duration_seconds",
			Help:    "Duration of each orchestration stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"stage"},
	)

	OrchestratorStageFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_stage_fallbacks_total",
			Help: "Stages that degraded to their default value",
		},
		[]string{"stage", "reason"},
	)

	MemoryUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_updates_total",
			Help: "Detached customer memory updates by result",
		},
		[]string{"result"},
	)

	SemanticIndexOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantic_index_operations_total",
			Help: "Semantic index writes, skips and queries by result",
		},
		[]string{"op", "result"},
	)
)

// ObserveStage records how long a stage took.
func ObserveStage(stage string, started time.Time) {
	OrchestratorStageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordFallback counts a degraded stage.
func RecordFallback(stage, reason string) {
	OrchestratorStageFallbacks.WithLabelValues(stage, reason).Inc()
}

// RecordJob records a finished worker job.
func RecordJob(taskType string, started time.Time, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	if errorCode != "" {
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
		return
	}
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}
