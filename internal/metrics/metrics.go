package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alert metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantor_soc_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"severity", "source"},
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantor_soc_alerts_resolved_total",
			Help: "Total number of alerts resolved",
		},
		[]string{"resolution"},
	)

	// Case metrics
	CasesOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantor_soc_cases_opened_total",
			Help: "Total number of cases opened",
		},
		[]string{"priority"},
	)

	CasesResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantor_soc_cases_resolved_total",
			Help: "Total number of cases resolved",
		},
	)

	// Trigger metrics
	TriggerMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantor_soc_trigger_matches_total",
			Help: "Total number of playbook trigger matches",
		},
		[]string{"trigger_type"},
	)

	// Execution metrics
	ExecutionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantor_soc_executions_started_total",
			Help: "Total number of playbook executions started",
		},
	)

	ExecutionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantor_soc_executions_completed_total",
			Help: "Total number of playbook executions reaching a terminal status",
		},
		[]string{"status"},
	)

	ExecutionsRejectedAdmission = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantor_soc_executions_rejected_admission_total",
			Help: "Total number of execution requests refused by the concurrency limit",
		},
	)

	ExecutionsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vantor_soc_executions_running",
			Help: "Number of playbook executions currently running",
		},
	)

	ExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vantor_soc_execution_duration_seconds",
			Help:    "Duration of completed playbook executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	ActionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantor_soc_action_results_total",
			Help: "Total number of playbook action outcomes",
		},
		[]string{"action_type", "outcome"},
	)
)
