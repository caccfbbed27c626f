// Package repository provides persistence for SOC entities.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrCaseNotFound      = errors.New("case not found")
	ErrTaskNotFound      = errors.New("case task not found")
	ErrPlaybookNotFound  = errors.New("playbook not found")
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionNotPending is returned by PromoteExecutionRunning when the
	// execution has already left pending status.
	ErrExecutionNotPending = errors.New("execution is not pending")
	ErrHandoverNotFound  = errors.New("handover not found")
)

// Repository defines the interface for SOC entity persistence.
type Repository interface {
	// Alert operations
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	SaveAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context, req *models.ListAlertsRequest) ([]*models.Alert, int, error)
	AddAlertComment(ctx context.Context, c *models.AlertComment) error
	ListAlertComments(ctx context.Context, alertID string) ([]*models.AlertComment, error)

	// Case operations
	CreateCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, id string) (*models.Case, error)
	SaveCase(ctx context.Context, c *models.Case) error
	ListCases(ctx context.Context, req *models.ListCasesRequest) ([]*models.Case, int, error)

	// LinkAlertToCase is idempotent: linking an already-linked alert is a
	// no-op and returns linked=false.
	LinkAlertToCase(ctx context.Context, caseID, alertID, addedBy string) (linked bool, err error)
	ListCaseAlerts(ctx context.Context, caseID string) ([]*models.CaseAlert, error)

	CreateTask(ctx context.Context, t *models.CaseTask) error
	GetTask(ctx context.Context, caseID, taskID string) (*models.CaseTask, error)
	SaveTask(ctx context.Context, t *models.CaseTask) error
	ListTasks(ctx context.Context, caseID string) ([]*models.CaseTask, error)

	AppendTimeline(ctx context.Context, e *models.CaseTimelineEntry) error
	ListTimeline(ctx context.Context, caseID string) ([]*models.CaseTimelineEntry, error)

	// Playbook operations
	CreatePlaybook(ctx context.Context, p *models.Playbook) error
	GetPlaybook(ctx context.Context, id string) (*models.Playbook, error)
	SavePlaybook(ctx context.Context, p *models.Playbook) error
	ListPlaybooks(ctx context.Context, req *models.ListPlaybooksRequest) ([]*models.Playbook, int, error)

	// ListMatchablePlaybooks returns active, enabled playbooks whose trigger
	// type is one of the given kinds.
	ListMatchablePlaybooks(ctx context.Context, triggerTypes []string) ([]*models.Playbook, error)

	// Execution operations
	//
	// InsertExecutionAdmitted inserts ex only if the playbook currently has
	// fewer than limit executions in running status. The count check and the
	// insert are atomic with respect to concurrent admissions for the same
	// playbook. Returns admitted=false when the limit is reached; the caller
	// decides how to record the refusal.
	InsertExecutionAdmitted(ctx context.Context, ex *models.PlaybookExecution, limit int) (admitted bool, err error)
	CreateExecution(ctx context.Context, ex *models.PlaybookExecution) error
	GetExecution(ctx context.Context, id string) (*models.PlaybookExecution, error)
	SaveExecution(ctx context.Context, ex *models.PlaybookExecution) error
	ListExecutions(ctx context.Context, req *models.ListExecutionsRequest) ([]*models.PlaybookExecution, int, error)
	CountExecutionsInStatus(ctx context.Context, playbookID, status string) (int, error)

	// PromoteExecutionRunning transitions a pending execution to running,
	// stamping started_at and the approval fields, only while the owning
	// playbook has fewer than limit running executions. The status check,
	// the count, and the update are atomic with respect to concurrent
	// admissions and promotions for the same playbook. Returns
	// promoted=false when the limit is reached and ErrExecutionNotPending
	// when the execution has already been decided.
	PromoteExecutionRunning(ctx context.Context, executionID, actor string, limit int) (ex *models.PlaybookExecution, promoted bool, err error)

	// TerminateExecutionIfPending applies ex's terminal fields only while
	// the stored execution is still pending. Returns terminated=false when
	// the execution has already left pending, so concurrent
	// approve/reject/cancel decisions resolve to exactly one outcome.
	TerminateExecutionIfPending(ctx context.Context, ex *models.PlaybookExecution) (terminated bool, err error)

	// RecordExecutionOutcome applies the terminal-transition bookkeeping to
	// the owning playbook: total_runs, successful_runs/failed_runs, and the
	// running mean of avg_execution_time. Applied as an atomic increment,
	// never as an application-level read-modify-write.
	RecordExecutionOutcome(ctx context.Context, playbookID string, success bool, duration time.Duration) error

	// Reporting reads
	ListAlertsInWindow(ctx context.Context, from, to time.Time) ([]*models.Alert, error)
	ListCasesInWindow(ctx context.Context, from, to time.Time) ([]*models.Case, error)
	ListExecutionsInWindow(ctx context.Context, from, to time.Time) ([]*models.PlaybookExecution, error)
	CountAlertsInStatuses(ctx context.Context, statuses []string) (int, error)
	CountCasesInStatuses(ctx context.Context, statuses []string) (int, error)
	CountPlaybooksInStatus(ctx context.Context, status string) (int, error)
	CountAllExecutionsInStatus(ctx context.Context, status string) (int, error)

	// Shift handover
	CreateHandover(ctx context.Context, h *models.ShiftHandover) error
	GetHandover(ctx context.Context, id string) (*models.ShiftHandover, error)
	SaveHandover(ctx context.Context, h *models.ShiftHandover) error

	// Utility
	Ping(ctx context.Context) error
	Close() error
}
