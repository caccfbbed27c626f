package models

import "time"

// Execution status values.
const (
	ExecutionStatusPending   = "pending"
	ExecutionStatusRunning   = "running"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusFailed    = "failed"
	ExecutionStatusCancelled = "cancelled"
	ExecutionStatusPartial   = "partial"
)

// Action result outcomes.
const (
	ActionOutcomeSuccess = "success"
	ActionOutcomeFailure = "failure"
	ActionOutcomeSkipped = "skipped"
)

// IsTerminalExecutionStatus reports whether an execution status is terminal.
func IsTerminalExecutionStatus(status string) bool {
	switch status {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled, ExecutionStatusPartial:
		return true
	}
	return false
}

// PlaybookExecution represents one run of a playbook against a specific
// triggering alert or case.
type PlaybookExecution struct {
	ID         string `json:"id"`
	PlaybookID string `json:"playbook_id"`
	Status     string `json:"status"`

	TriggerReason string  `json:"trigger_reason"`
	AlertID       *string `json:"alert_id,omitempty"` // Triggering alert, if any
	CaseID        *string `json:"case_id,omitempty"`  // Triggering case, if any

	// StartedAt is set only on transition into running. A pending execution
	// whose approval is rejected terminates without it ever being set.
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ActionResults []ActionResult `json:"action_results,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`

	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovalDecided *time.Time `json:"approval_decided_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	ExecutedBy string    `json:"executed_by"`
	TenantID   string    `json:"tenant_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActionResult records the outcome of a single action within an execution,
// in list order.
type ActionResult struct {
	Index      int        `json:"index"`
	ActionType ActionType `json:"action_type"`
	Outcome    string     `json:"outcome"`
	Detail     string     `json:"detail,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
}

// ExecutionRequest carries the context of a trigger match into the scheduler.
type ExecutionRequest struct {
	PlaybookID    string
	TriggerReason string
	AlertID       *string
	CaseID        *string
	RequestedBy   string
	TenantID      string
}

// RejectExecutionRequest represents the request to reject a pending execution.
type RejectExecutionRequest struct {
	Reason string `json:"reason"`
}

// ListExecutionsRequest represents query parameters for listing executions.
type ListExecutionsRequest struct {
	Page       int
	Limit      int
	PlaybookID string
	Status     string
}

// ListExecutionsResponse represents the response for listing executions.
type ListExecutionsResponse struct {
	Executions []*PlaybookExecution `json:"executions"`
	Pagination Pagination           `json:"pagination"`
}
