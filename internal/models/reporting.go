package models

import "time"

// SOCMetrics represents derived SOC KPIs over a reporting window. It is
// read-aggregated from alert, case and execution history and never written
// by the execution path.
type SOCMetrics struct {
	WindowFrom time.Time `json:"window_from"`
	WindowTo   time.Time `json:"window_to"`

	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	AlertsByStatus   map[string]int `json:"alerts_by_status"`
	AlertsBySource   map[string]int `json:"alerts_by_source"`
	CasesByStatus    map[string]int `json:"cases_by_status"`

	// Mean time to detect/respond/contain, in seconds.
	MTTDSeconds float64 `json:"mttd_seconds"`
	MTTRSeconds float64 `json:"mttr_seconds"`
	MTTCSeconds float64 `json:"mttc_seconds"`

	// AutomationRate is automatically-triggered completed executions over
	// total qualifying alerts in the window.
	AutomationRate float64 `json:"automation_rate"`

	TotalExecutions     int `json:"total_executions"`
	CompletedExecutions int `json:"completed_executions"`
	FailedExecutions    int `json:"failed_executions"`
}

// SOCDashboardStats represents the current-state dashboard snapshot.
type SOCDashboardStats struct {
	OpenAlerts        int            `json:"open_alerts"`
	OpenCases         int            `json:"open_cases"`
	AlertsBySeverity  map[string]int `json:"alerts_by_severity"`
	RunningExecutions int            `json:"running_executions"`
	PendingApprovals  int            `json:"pending_approvals"`
	ActivePlaybooks   int            `json:"active_playbooks"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// ShiftHandover represents a snapshot hand-authored by an outgoing analyst
// and acknowledged later by an incoming analyst.
type ShiftHandover struct {
	ID              string     `json:"id"`
	Summary         string     `json:"summary"`
	OutgoingAnalyst string     `json:"outgoing_analyst"`
	IncomingAnalyst *string    `json:"incoming_analyst,omitempty"`
	OpenAlertIDs    []string   `json:"open_alert_ids,omitempty"`
	OpenCaseIDs     []string   `json:"open_case_ids,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	TenantID        string     `json:"tenant_id"`
	CreatedAt       time.Time  `json:"created_at"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
}

// CreateHandoverRequest represents the request to author a shift handover.
type CreateHandoverRequest struct {
	Summary string `json:"summary"`
	Notes   string `json:"notes,omitempty"`

	// PrePopulate fills the open alert/case lists from current query
	// results instead of requiring the analyst to enumerate them.
	PrePopulate  bool     `json:"pre_populate,omitempty"`
	OpenAlertIDs []string `json:"open_alert_ids,omitempty"`
	OpenCaseIDs  []string `json:"open_case_ids,omitempty"`
}

// MetricsWindowRequest selects the reporting window for SOC metrics.
type MetricsWindowRequest struct {
	From time.Time
	To   time.Time
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
