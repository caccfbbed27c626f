package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
)

// ExecutionRequester submits admitted execution requests. Implemented by the
// scheduler.
type ExecutionRequester interface {
	Request(ctx context.Context, req *models.ExecutionRequest) (*models.PlaybookExecution, error)
}

// Dispatcher receives alert and case lifecycle events, matches them against
// registered playbooks, and submits execution requests for the automatic
// matches. It implements the trigger sink consumed by the alert and case
// services.
type Dispatcher struct {
	repo      repository.Repository
	scheduler ExecutionRequester
	logger    *slog.Logger
}

// NewDispatcher creates a new trigger dispatcher.
func NewDispatcher(repo repository.Repository, scheduler ExecutionRequester, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, scheduler: scheduler, logger: logger}
}

// AlertCreated evaluates alert-scoped playbooks against a newly created alert.
func (d *Dispatcher) AlertCreated(ctx context.Context, a *models.Alert) {
	d.dispatchAlert(ctx, a, "alert created", alertTriggerTypes)
}

// AlertUpdated re-evaluates alert-scoped playbooks after an alert update.
// Creation-scoped playbooks are not considered again.
func (d *Dispatcher) AlertUpdated(ctx context.Context, a *models.Alert) {
	d.dispatchAlert(ctx, a, "alert updated", alertUpdateTriggerTypes)
}

// CaseCreated evaluates case-scoped playbooks against a newly created case.
func (d *Dispatcher) CaseCreated(ctx context.Context, c *models.Case) {
	playbooks, err := d.repo.ListMatchablePlaybooks(ctx, caseTriggerTypes)
	if err != nil {
		d.logger.Error("failed to list playbooks for case trigger", "case_id", c.ID, "error", err)
		return
	}

	for _, p := range playbooks {
		if !MatchCase(p, c) || !p.RunAutomatically {
			continue
		}
		d.submit(ctx, &models.ExecutionRequest{
			PlaybookID:    p.ID,
			TriggerReason: fmt.Sprintf("case created: %s matched trigger %s", c.CaseNumber, p.TriggerType),
			CaseID:        &c.ID,
			RequestedBy:   "system",
			TenantID:      c.TenantID,
		})
	}
}

// CandidatesForAlert returns the matching playbooks that are not run
// automatically, as candidates for manual invocation.
func (d *Dispatcher) CandidatesForAlert(ctx context.Context, a *models.Alert) ([]*models.Playbook, error) {
	playbooks, err := d.repo.ListMatchablePlaybooks(ctx, alertTriggerTypes)
	if err != nil {
		return nil, err
	}

	var candidates []*models.Playbook
	for _, p := range playbooks {
		if MatchAlert(p, a) && !p.RunAutomatically {
			candidates = append(candidates, p)
		}
	}
	return candidates, nil
}

func (d *Dispatcher) dispatchAlert(ctx context.Context, a *models.Alert, event string, triggerTypes []string) {
	playbooks, err := d.repo.ListMatchablePlaybooks(ctx, triggerTypes)
	if err != nil {
		d.logger.Error("failed to list playbooks for alert trigger", "alert_id", a.ID, "error", err)
		return
	}

	for _, p := range playbooks {
		if !MatchAlert(p, a) || !p.RunAutomatically {
			continue
		}
		d.submit(ctx, &models.ExecutionRequest{
			PlaybookID:    p.ID,
			TriggerReason: fmt.Sprintf("%s: %s matched trigger %s", event, a.AlertID, p.TriggerType),
			AlertID:       &a.ID,
			RequestedBy:   "system",
			TenantID:      a.TenantID,
		})
	}
}

func (d *Dispatcher) submit(ctx context.Context, req *models.ExecutionRequest) {
	ex, err := d.scheduler.Request(ctx, req)
	if err != nil {
		d.logger.Warn("execution request not admitted",
			"playbook_id", req.PlaybookID, "reason", req.TriggerReason, "error", err)
		return
	}
	d.logger.Info("execution requested",
		"playbook_id", req.PlaybookID, "execution_id", ex.ID, "status", ex.Status)
}
