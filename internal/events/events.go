// Package events publishes SOC lifecycle events to the message bus for
// downstream consumers (dashboards, external SOAR integrations).
package events

import (
	"time"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// AlertEvent is published on alert create and update.
type AlertEvent struct {
	ID        string    `json:"id"`
	AlertID   string    `json:"alert_id"`
	Title     string    `json:"title"`
	Severity  string    `json:"severity"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	TenantID  string    `json:"tenant_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CaseEvent is published on case lifecycle changes.
type CaseEvent struct {
	ID         string    `json:"id"`
	CaseNumber string    `json:"case_number"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	TenantID   string    `json:"tenant_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExecutionEvent is published on execution start and terminal transition.
type ExecutionEvent struct {
	ID            string    `json:"id"`
	PlaybookID    string    `json:"playbook_id"`
	Status        string    `json:"status"`
	TriggerReason string    `json:"trigger_reason"`
	AlertID       *string   `json:"alert_id,omitempty"`
	CaseID        *string   `json:"case_id,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewAlertEvent builds an alert event from the current alert state.
func NewAlertEvent(a *models.Alert) *AlertEvent {
	return &AlertEvent{
		ID:        a.ID,
		AlertID:   a.AlertID,
		Title:     a.Title,
		Severity:  a.Severity,
		Status:    a.Status,
		Source:    a.Source,
		TenantID:  a.TenantID,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaseEvent builds a case event from the current case state.
func NewCaseEvent(c *models.Case) *CaseEvent {
	return &CaseEvent{
		ID:         c.ID,
		CaseNumber: c.CaseNumber,
		Title:      c.Title,
		Status:     c.Status,
		Priority:   c.Priority,
		TenantID:   c.TenantID,
		Timestamp:  time.Now().UTC(),
	}
}

// NewExecutionEvent builds an execution event from the current execution state.
func NewExecutionEvent(ex *models.PlaybookExecution) *ExecutionEvent {
	return &ExecutionEvent{
		ID:            ex.ID,
		PlaybookID:    ex.PlaybookID,
		Status:        ex.Status,
		TriggerReason: ex.TriggerReason,
		AlertID:       ex.AlertID,
		CaseID:        ex.CaseID,
		ErrorMessage:  ex.ErrorMessage,
		TenantID:      ex.TenantID,
		Timestamp:     time.Now().UTC(),
	}
}
