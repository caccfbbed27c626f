package models

import "time"

// Case status values.
const (
	CaseStatusOpen        = "open"
	CaseStatusInProgress  = "in_progress"
	CaseStatusPendingInfo = "pending_info"
	CaseStatusEscalated   = "escalated"
	CaseStatusResolved    = "resolved"
	CaseStatusClosed      = "closed"
)

// Case priority values.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Case task status values.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocked    = "blocked"
)

// Timeline entry types.
const (
	TimelineEntryNote       = "note"
	TimelineEntryEscalation = "escalation"
	TimelineEntryResolution = "resolution"
	TimelineEntryAlertLink  = "alert_linked"
	TimelineEntryAutomation = "automation"
)

// IsTerminalCaseStatus reports whether a case status is terminal.
func IsTerminalCaseStatus(status string) bool {
	return status == CaseStatusResolved || status == CaseStatusClosed
}

// Case represents an investigation aggregating one or more alerts.
type Case struct {
	ID          string `json:"id"`
	CaseNumber  string `json:"case_number"` // CASE-<year>-NNNN
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`

	AssigneeID   *string `json:"assignee_id,omitempty"`
	AssignedTeam string  `json:"assigned_team,omitempty"`

	EscalatedTo      *string    `json:"escalated_to,omitempty"`
	EscalationReason string     `json:"escalation_reason,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`

	// SLA timers, all in seconds. TimeToResolve is derived from
	// resolved_at - opened_at and is never set directly.
	TimeToDetect  *int64 `json:"time_to_detect,omitempty"`
	TimeToRespond *int64 `json:"time_to_respond,omitempty"`
	TimeToResolve *int64 `json:"time_to_resolve,omitempty"`

	ResolutionSummary string `json:"resolution_summary,omitempty"`
	RootCause         string `json:"root_cause,omitempty"`
	LessonsLearned    string `json:"lessons_learned,omitempty"`

	IncidentID *string `json:"incident_id,omitempty"` // External incident record

	OpenedAt   time.Time  `json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	TenantID  string    `json:"tenant_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AlertCount int `json:"alert_count,omitempty"` // Calculated field
}

// CaseAlert represents the association between a case and an alert.
type CaseAlert struct {
	CaseID  string    `json:"case_id"`
	AlertID string    `json:"alert_id"`
	AddedAt time.Time `json:"added_at"`
	AddedBy string    `json:"added_by"`
}

// CaseTask represents a work item owned by a case.
type CaseTask struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"case_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CaseTimelineEntry represents an append-only, time-ordered log entry on a
// case. Entries are never mutated after creation.
type CaseTimelineEntry struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	EntryType   string    `json:"entry_type"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Evidence    []string  `json:"evidence,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCaseRequest represents the request to create a new case.
type CreateCaseRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	Team        string   `json:"team,omitempty"`
	AlertIDs    []string `json:"alert_ids,omitempty"` // Optional seed alerts
}

// EscalateCaseRequest represents the request to escalate a case.
type EscalateCaseRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// ResolveCaseRequest represents the request to resolve a case.
type ResolveCaseRequest struct {
	Summary        string `json:"summary"`
	RootCause      string `json:"root_cause,omitempty"`
	LessonsLearned string `json:"lessons_learned,omitempty"`
}

// CreateTaskRequest represents the request to add a task to a case.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// ListCasesRequest represents query parameters for listing cases.
type ListCasesRequest struct {
	Page       int
	Limit      int
	Status     string
	Priority   string
	AssigneeID string
}

// ListCasesResponse represents the response for listing cases.
type ListCasesResponse struct {
	Cases      []*Case    `json:"cases"`
	Pagination Pagination `json:"pagination"`
}
