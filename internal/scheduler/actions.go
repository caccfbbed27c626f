package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/notification"
	"github.com/vantor-systems/vantor-soc/internal/service"
)

// fatalActionFailure is the per-action-type abort policy: a failed action of
// a fatal type aborts the remaining sequence, a non-fatal failure lets it
// continue. Containment actions are fatal because later steps usually assume
// the threat is contained.
var fatalActionFailure = map[models.ActionType]bool{
	models.ActionEnrich:       false,
	models.ActionNotify:       false,
	models.ActionBlock:        true,
	models.ActionIsolate:      true,
	models.ActionQuarantine:   true,
	models.ActionCreateTicket: false,
	models.ActionRunScript:    true,
	models.ActionAPICall:      false,
	models.ActionAssign:       false,
	models.ActionEscalate:     false,
	models.ActionClose:        true,
	models.ActionCustom:       false,
	models.ActionUnknown:      false,
}

// ActionRunner executes a single playbook action. Run returns a
// human-readable detail on success and an error on failure; the scheduler
// records the outcome either way.
type ActionRunner interface {
	Run(ctx context.Context, action models.Action, ex *models.PlaybookExecution) (string, error)
}

// Runner is the production ActionRunner. Containment and ticketing actions
// are dispatched to external systems the core does not implement; the runner
// records the dispatch attempt and treats the call as opaque.
type Runner struct {
	alerts   *service.AlertService
	cases    *service.CaseService
	notifier *notification.Registry
	client   *http.Client
	logger   *slog.Logger
}

// NewRunner creates a new action runner.
func NewRunner(alerts *service.AlertService, cases *service.CaseService, notifier *notification.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		alerts:   alerts,
		cases:    cases,
		notifier: notifier,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Run executes one action against the execution's alert/case scope.
func (r *Runner) Run(ctx context.Context, action models.Action, ex *models.PlaybookExecution) (string, error) {
	switch action.Type {
	case models.ActionEnrich:
		return r.runEnrich(ctx, action.Enrich, ex)
	case models.ActionNotify:
		return r.runNotify(ctx, action.Notify, ex)
	case models.ActionBlock:
		return r.runBlock(ctx, action.Block)
	case models.ActionIsolate:
		return r.runIsolate(ctx, action.Isolate)
	case models.ActionQuarantine:
		return r.runQuarantine(ctx, action.Quarantine)
	case models.ActionCreateTicket:
		return r.runCreateTicket(ctx, action.CreateTicket, ex)
	case models.ActionRunScript:
		return r.runScript(ctx, action.RunScript)
	case models.ActionAPICall:
		return r.runAPICall(ctx, action.APICall)
	case models.ActionAssign:
		return r.runAssign(ctx, action.Assign, ex)
	case models.ActionEscalate:
		return r.runEscalate(ctx, action.Escalate, ex)
	case models.ActionClose:
		return r.runClose(ctx, action.Close, ex)
	case models.ActionCustom:
		return "custom action acknowledged", nil
	default:
		return "", fmt.Errorf("unsupported action type %q", action.Type)
	}
}

func (r *Runner) runEnrich(ctx context.Context, p *models.EnrichParams, ex *models.PlaybookExecution) (string, error) {
	if p == nil || p.Provider == "" {
		return "", fmt.Errorf("enrich action requires a provider")
	}
	if ex.AlertID == nil {
		return fmt.Sprintf("no alert in scope, enrichment via %s skipped", p.Provider), nil
	}

	a, err := r.alerts.GetAlert(ctx, *ex.AlertID)
	if err != nil {
		return "", fmt.Errorf("load alert for enrichment: %w", err)
	}

	enrichment := map[string]interface{}{}
	for k, v := range a.Enrichment {
		enrichment[k] = v
	}
	enrichment[p.Provider] = map[string]interface{}{
		"requested_at": time.Now().UTC().Format(time.RFC3339),
		"fields":       p.Fields,
		"execution_id": ex.ID,
	}

	// ApplyEnrichment bypasses the trigger sink: an automated enrichment
	// write must not feed back into trigger evaluation.
	if _, err := r.alerts.ApplyEnrichment(ctx, a.ID, enrichment); err != nil {
		return "", fmt.Errorf("persist enrichment: %w", err)
	}
	return fmt.Sprintf("alert %s enriched via %s", a.AlertID, p.Provider), nil
}

func (r *Runner) runNotify(ctx context.Context, p *models.NotifyParams, ex *models.PlaybookExecution) (string, error) {
	if p == nil || p.Channel == "" {
		return "", fmt.Errorf("notify action requires a channel")
	}
	ch, ok := r.notifier.Get(p.Channel)
	if !ok {
		return "", fmt.Errorf("notification channel %q is not configured", p.Channel)
	}

	msg := &notification.Message{
		Subject:     p.Message,
		ExecutionID: ex.ID,
	}
	if msg.Subject == "" {
		msg.Subject = "playbook notification"
	}
	if ex.AlertID != nil {
		if a, err := r.alerts.GetAlert(ctx, *ex.AlertID); err == nil {
			msg.AlertID = a.AlertID
			msg.Severity = a.Severity
			msg.Body = a.Title
		}
	}
	if ex.CaseID != nil {
		if c, err := r.cases.GetCase(ctx, *ex.CaseID); err == nil {
			msg.CaseID = c.CaseNumber
			if msg.Body == "" {
				msg.Body = c.Title
			}
		}
	}

	if err := ch.Send(ctx, p.Target, msg); err != nil {
		return "", fmt.Errorf("dispatch via %s: %w", p.Channel, err)
	}
	return fmt.Sprintf("notification dispatched via %s", p.Channel), nil
}

func (r *Runner) runBlock(ctx context.Context, p *models.BlockParams) (string, error) {
	if p == nil || p.Indicator == "" || p.Target == "" {
		return "", fmt.Errorf("block action requires an indicator and a target")
	}
	r.logger.Info("block dispatched", "indicator", p.Indicator, "target", p.Target, "duration", p.Duration)
	return fmt.Sprintf("block of %s requested on %s", p.Indicator, p.Target), nil
}

func (r *Runner) runIsolate(ctx context.Context, p *models.IsolateParams) (string, error) {
	if p == nil || p.HostID == "" {
		return "", fmt.Errorf("isolate action requires a host id")
	}
	r.logger.Info("host isolation dispatched", "host_id", p.HostID, "method", p.Method)
	return fmt.Sprintf("isolation of host %s requested", p.HostID), nil
}

func (r *Runner) runQuarantine(ctx context.Context, p *models.QuarantineParams) (string, error) {
	if p == nil || p.HostID == "" || p.FilePath == "" {
		return "", fmt.Errorf("quarantine action requires a host id and file path")
	}
	r.logger.Info("file quarantine dispatched", "host_id", p.HostID, "file_path", p.FilePath)
	return fmt.Sprintf("quarantine of %s on host %s requested", p.FilePath, p.HostID), nil
}

func (r *Runner) runCreateTicket(ctx context.Context, p *models.CreateTicketParams, ex *models.PlaybookExecution) (string, error) {
	if p == nil || p.System == "" {
		return "", fmt.Errorf("create_ticket action requires a system")
	}
	r.logger.Info("ticket creation dispatched",
		"system", p.System, "project", p.Project, "execution_id", ex.ID)
	return fmt.Sprintf("ticket requested in %s", p.System), nil
}

func (r *Runner) runScript(ctx context.Context, p *models.RunScriptParams) (string, error) {
	if p == nil || p.Script == "" {
		return "", fmt.Errorf("run_script action requires a script")
	}
	// Scripts run on an external task runner; the core only records the
	// dispatch.
	r.logger.Info("script dispatched", "script", p.Script, "args", len(p.Args))
	return fmt.Sprintf("script %s dispatched", p.Script), nil
}

func (r *Runner) runAPICall(ctx context.Context, p *models.APICallParams) (string, error) {
	if p == nil || p.URL == "" {
		return "", fmt.Errorf("api_call action requires a url")
	}
	method := p.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if p.Body != "" {
		body = strings.NewReader(p.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.URL, body)
	if err != nil {
		return "", fmt.Errorf("build api request: %w", err)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("api call returned status %d", resp.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d", method, p.URL, resp.StatusCode), nil
}

func (r *Runner) runAssign(ctx context.Context, p *models.AssignParams, ex *models.PlaybookExecution) (string, error) {
	if p == nil || p.Assignee == "" {
		return "", fmt.Errorf("assign action requires an assignee")
	}
	if ex.AlertID == nil {
		return "", fmt.Errorf("assign action requires an alert in scope")
	}
	if _, err := r.alerts.AssignAlert(ctx, *ex.AlertID, &models.AssignAlertRequest{Assignee: p.Assignee}); err != nil {
		return "", fmt.Errorf("assign alert: %w", err)
	}
	return fmt.Sprintf("alert assigned to %s", p.Assignee), nil
}

func (r *Runner) runEscalate(ctx context.Context, p *models.EscalateParams, ex *models.PlaybookExecution) (string, error) {
	if p == nil || p.Target == "" {
		return "", fmt.Errorf("escalate action requires a target")
	}
	if ex.CaseID == nil {
		return "", fmt.Errorf("escalate action requires a case in scope")
	}
	reason := p.Reason
	if reason == "" {
		reason = "escalated by playbook"
	}
	if _, err := r.cases.Escalate(ctx, *ex.CaseID, &models.EscalateCaseRequest{Target: p.Target, Reason: reason}, "automation"); err != nil {
		return "", fmt.Errorf("escalate case: %w", err)
	}
	return fmt.Sprintf("case escalated to %s", p.Target), nil
}

func (r *Runner) runClose(ctx context.Context, p *models.CloseParams, ex *models.PlaybookExecution) (string, error) {
	resolution := "closed by playbook"
	if p != nil && p.Resolution != "" {
		resolution = p.Resolution
	}

	switch {
	case ex.CaseID != nil:
		if _, err := r.cases.Resolve(ctx, *ex.CaseID, &models.ResolveCaseRequest{Summary: resolution}, "automation"); err != nil {
			return "", fmt.Errorf("resolve case: %w", err)
		}
		return "case resolved: " + resolution, nil
	case ex.AlertID != nil:
		if _, err := r.alerts.ResolveAlert(ctx, *ex.AlertID, &models.ResolveAlertRequest{Notes: resolution}); err != nil {
			return "", fmt.Errorf("resolve alert: %w", err)
		}
		return "alert resolved: " + resolution, nil
	default:
		return "", fmt.Errorf("close action requires an alert or case in scope")
	}
}
