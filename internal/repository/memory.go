package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// InMemoryRepository implements Repository with in-process maps. It is used
// in tests and for single-node development deployments.
type InMemoryRepository struct {
	mu sync.RWMutex

	alerts     map[string]*models.Alert
	comments   map[string][]*models.AlertComment
	cases      map[string]*models.Case
	caseAlerts map[string]map[string]*models.CaseAlert // caseID -> alertID -> link
	tasks      map[string]*models.CaseTask
	timeline   map[string][]*models.CaseTimelineEntry
	playbooks  map[string]*models.Playbook
	executions map[string]*models.PlaybookExecution
	handovers  map[string]*models.ShiftHandover
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts:     make(map[string]*models.Alert),
		comments:   make(map[string][]*models.AlertComment),
		cases:      make(map[string]*models.Case),
		caseAlerts: make(map[string]map[string]*models.CaseAlert),
		tasks:      make(map[string]*models.CaseTask),
		timeline:   make(map[string][]*models.CaseTimelineEntry),
		playbooks:  make(map[string]*models.Playbook),
		executions: make(map[string]*models.PlaybookExecution),
		handovers:  make(map[string]*models.ShiftHandover),
	}
}

// ---------------------------------------------------------------------------
// Alerts

func (r *InMemoryRepository) CreateAlert(ctx context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[a.ID] = cloneAlert(a)
	return nil
}

func (r *InMemoryRepository) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return cloneAlert(a), nil
}

func (r *InMemoryRepository) SaveAlert(ctx context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[a.ID]; !ok {
		return ErrAlertNotFound
	}
	r.alerts[a.ID] = cloneAlert(a)
	return nil
}

func (r *InMemoryRepository) ListAlerts(ctx context.Context, req *models.ListAlertsRequest) ([]*models.Alert, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*models.Alert{}
	for _, a := range r.alerts {
		if req.Status != "" && a.Status != req.Status {
			continue
		}
		if req.Severity != "" && a.Severity != req.Severity {
			continue
		}
		if req.Source != "" && a.Source != req.Source {
			continue
		}
		if req.Assignee != "" && (a.AssignedTo == nil || *a.AssignedTo != req.Assignee) {
			continue
		}
		if req.From != nil && a.DetectedAt.Before(*req.From) {
			continue
		}
		if req.To != nil && a.DetectedAt.After(*req.To) {
			continue
		}
		matched = append(matched, cloneAlert(a))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DetectedAt.After(matched[j].DetectedAt)
	})
	total := len(matched)
	return paginate(matched, req.Page, req.Limit), total, nil
}

func (r *InMemoryRepository) AddAlertComment(ctx context.Context, c *models.AlertComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[c.AlertID]; !ok {
		return ErrAlertNotFound
	}
	cp := *c
	r.comments[c.AlertID] = append(r.comments[c.AlertID], &cp)
	return nil
}

func (r *InMemoryRepository) ListAlertComments(ctx context.Context, alertID string) ([]*models.AlertComment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.alerts[alertID]; !ok {
		return nil, ErrAlertNotFound
	}
	out := make([]*models.AlertComment, 0, len(r.comments[alertID]))
	for _, c := range r.comments[alertID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Cases

func (r *InMemoryRepository) CreateCase(ctx context.Context, c *models.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cases[c.ID] = &cp
	r.caseAlerts[c.ID] = make(map[string]*models.CaseAlert)
	return nil
}

func (r *InMemoryRepository) GetCase(ctx context.Context, id string) (*models.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	cp := *c
	cp.AlertCount = len(r.caseAlerts[id])
	return &cp, nil
}

func (r *InMemoryRepository) SaveCase(ctx context.Context, c *models.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; !ok {
		return ErrCaseNotFound
	}
	cp := *c
	r.cases[c.ID] = &cp
	return nil
}

func (r *InMemoryRepository) ListCases(ctx context.Context, req *models.ListCasesRequest) ([]*models.Case, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*models.Case{}
	for _, c := range r.cases {
		if req.Status != "" && c.Status != req.Status {
			continue
		}
		if req.Priority != "" && c.Priority != req.Priority {
			continue
		}
		if req.AssigneeID != "" && (c.AssigneeID == nil || *c.AssigneeID != req.AssigneeID) {
			continue
		}
		cp := *c
		cp.AlertCount = len(r.caseAlerts[c.ID])
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OpenedAt.After(matched[j].OpenedAt)
	})
	total := len(matched)
	return paginate(matched, req.Page, req.Limit), total, nil
}

func (r *InMemoryRepository) LinkAlertToCase(ctx context.Context, caseID, alertID, addedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, ok := r.caseAlerts[caseID]
	if !ok {
		return false, ErrCaseNotFound
	}
	if _, ok := r.alerts[alertID]; !ok {
		return false, ErrAlertNotFound
	}
	if _, exists := links[alertID]; exists {
		return false, nil
	}
	links[alertID] = &models.CaseAlert{
		CaseID:  caseID,
		AlertID: alertID,
		AddedAt: time.Now().UTC(),
		AddedBy: addedBy,
	}
	return true, nil
}

func (r *InMemoryRepository) ListCaseAlerts(ctx context.Context, caseID string) ([]*models.CaseAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	links, ok := r.caseAlerts[caseID]
	if !ok {
		return nil, ErrCaseNotFound
	}
	out := make([]*models.CaseAlert, 0, len(links))
	for _, l := range links {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (r *InMemoryRepository) CreateTask(ctx context.Context, t *models.CaseTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[t.CaseID]; !ok {
		return ErrCaseNotFound
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetTask(ctx context.Context, caseID, taskID string) (*models.CaseTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok || t.CaseID != caseID {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemoryRepository) SaveTask(ctx context.Context, t *models.CaseTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return ErrTaskNotFound
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *InMemoryRepository) ListTasks(ctx context.Context, caseID string) ([]*models.CaseTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.cases[caseID]; !ok {
		return nil, ErrCaseNotFound
	}
	out := []*models.CaseTask{}
	for _, t := range r.tasks {
		if t.CaseID == caseID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) AppendTimeline(ctx context.Context, e *models.CaseTimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[e.CaseID]; !ok {
		return ErrCaseNotFound
	}
	r.timeline[e.CaseID] = append(r.timeline[e.CaseID], cloneTimelineEntry(e))
	return nil
}

func (r *InMemoryRepository) ListTimeline(ctx context.Context, caseID string) ([]*models.CaseTimelineEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.cases[caseID]; !ok {
		return nil, ErrCaseNotFound
	}
	out := make([]*models.CaseTimelineEntry, 0, len(r.timeline[caseID]))
	for _, e := range r.timeline[caseID] {
		out = append(out, cloneTimelineEntry(e))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Playbooks

func (r *InMemoryRepository) CreatePlaybook(ctx context.Context, p *models.Playbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playbooks[p.ID] = clonePlaybook(p)
	return nil
}

func (r *InMemoryRepository) GetPlaybook(ctx context.Context, id string) (*models.Playbook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.playbooks[id]
	if !ok {
		return nil, ErrPlaybookNotFound
	}
	return clonePlaybook(p), nil
}

func (r *InMemoryRepository) SavePlaybook(ctx context.Context, p *models.Playbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playbooks[p.ID]; !ok {
		return ErrPlaybookNotFound
	}
	r.playbooks[p.ID] = clonePlaybook(p)
	return nil
}

func (r *InMemoryRepository) ListPlaybooks(ctx context.Context, req *models.ListPlaybooksRequest) ([]*models.Playbook, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*models.Playbook{}
	for _, p := range r.playbooks {
		if req.Status != "" && p.Status != req.Status {
			continue
		}
		if req.TriggerType != "" && p.TriggerType != req.TriggerType {
			continue
		}
		matched = append(matched, clonePlaybook(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := len(matched)
	return paginate(matched, req.Page, req.Limit), total, nil
}

func (r *InMemoryRepository) ListMatchablePlaybooks(ctx context.Context, triggerTypes []string) ([]*models.Playbook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(triggerTypes))
	for _, t := range triggerTypes {
		wanted[t] = true
	}

	out := []*models.Playbook{}
	for _, p := range r.playbooks {
		if p.Status != models.PlaybookStatusActive || !p.IsEnabled {
			continue
		}
		if !wanted[p.TriggerType] {
			continue
		}
		out = append(out, clonePlaybook(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------------------------------------------------------------------------
// Executions

func (r *InMemoryRepository) InsertExecutionAdmitted(ctx context.Context, ex *models.PlaybookExecution, limit int) (bool, error) {
	// A single write lock serializes the count check against concurrent
	// admissions for the same playbook.
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.playbooks[ex.PlaybookID]; !ok {
		return false, ErrPlaybookNotFound
	}

	running := 0
	for _, e := range r.executions {
		if e.PlaybookID == ex.PlaybookID && e.Status == models.ExecutionStatusRunning {
			running++
		}
	}
	if limit > 0 && running >= limit {
		return false, nil
	}

	r.executions[ex.ID] = cloneExecution(ex)
	return true, nil
}

func (r *InMemoryRepository) CreateExecution(ctx context.Context, ex *models.PlaybookExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions[ex.ID] = cloneExecution(ex)
	return nil
}

func (r *InMemoryRepository) GetExecution(ctx context.Context, id string) (*models.PlaybookExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	return cloneExecution(ex), nil
}

func (r *InMemoryRepository) SaveExecution(ctx context.Context, ex *models.PlaybookExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.executions[ex.ID]; !ok {
		return ErrExecutionNotFound
	}
	r.executions[ex.ID] = cloneExecution(ex)
	return nil
}

func (r *InMemoryRepository) PromoteExecutionRunning(ctx context.Context, executionID, actor string, limit int) (*models.PlaybookExecution, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ex, ok := r.executions[executionID]
	if !ok {
		return nil, false, ErrExecutionNotFound
	}
	if ex.Status != models.ExecutionStatusPending {
		return nil, false, ErrExecutionNotPending
	}

	if limit > 0 {
		running := 0
		for _, e := range r.executions {
			if e.PlaybookID == ex.PlaybookID && e.Status == models.ExecutionStatusRunning {
				running++
			}
		}
		if running >= limit {
			return nil, false, nil
		}
	}

	now := time.Now().UTC()
	ex.Status = models.ExecutionStatusRunning
	ex.StartedAt = &now
	ex.ApprovedBy = &actor
	ex.ApprovalDecided = &now

	cp := cloneExecution(ex)
	return cp, true, nil
}

func (r *InMemoryRepository) TerminateExecutionIfPending(ctx context.Context, ex *models.PlaybookExecution) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.executions[ex.ID]
	if !ok {
		return false, ErrExecutionNotFound
	}
	if stored.Status != models.ExecutionStatusPending {
		return false, nil
	}
	r.executions[ex.ID] = cloneExecution(ex)
	return true, nil
}

func (r *InMemoryRepository) ListExecutions(ctx context.Context, req *models.ListExecutionsRequest) ([]*models.PlaybookExecution, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*models.PlaybookExecution{}
	for _, ex := range r.executions {
		if req.PlaybookID != "" && ex.PlaybookID != req.PlaybookID {
			continue
		}
		if req.Status != "" && ex.Status != req.Status {
			continue
		}
		matched = append(matched, cloneExecution(ex))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	return paginate(matched, req.Page, req.Limit), total, nil
}

func (r *InMemoryRepository) CountExecutionsInStatus(ctx context.Context, playbookID, status string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ex := range r.executions {
		if ex.PlaybookID == playbookID && ex.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) RecordExecutionOutcome(ctx context.Context, playbookID string, success bool, duration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.playbooks[playbookID]
	if !ok {
		return ErrPlaybookNotFound
	}

	completed := float64(p.TotalRuns)
	p.TotalRuns++
	if success {
		p.SuccessfulRuns++
	} else {
		p.FailedRuns++
	}
	p.AvgExecutionTime = (p.AvgExecutionTime*completed + duration.Seconds()) / float64(p.TotalRuns)
	return nil
}

// ---------------------------------------------------------------------------
// Reporting reads

func (r *InMemoryRepository) ListAlertsInWindow(ctx context.Context, from, to time.Time) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Alert{}
	for _, a := range r.alerts {
		if a.DetectedAt.Before(from) || a.DetectedAt.After(to) {
			continue
		}
		out = append(out, cloneAlert(a))
	}
	return out, nil
}

func (r *InMemoryRepository) ListCasesInWindow(ctx context.Context, from, to time.Time) ([]*models.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Case{}
	for _, c := range r.cases {
		if c.OpenedAt.Before(from) || c.OpenedAt.After(to) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *InMemoryRepository) ListExecutionsInWindow(ctx context.Context, from, to time.Time) ([]*models.PlaybookExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.PlaybookExecution{}
	for _, ex := range r.executions {
		if ex.CreatedAt.Before(from) || ex.CreatedAt.After(to) {
			continue
		}
		out = append(out, cloneExecution(ex))
	}
	return out, nil
}

func (r *InMemoryRepository) CountAlertsInStatuses(ctx context.Context, statuses []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.alerts {
		if containsString(statuses, a.Status) {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) CountCasesInStatuses(ctx context.Context, statuses []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.cases {
		if containsString(statuses, c.Status) {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) CountPlaybooksInStatus(ctx context.Context, status string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.playbooks {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) CountAllExecutionsInStatus(ctx context.Context, status string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ex := range r.executions {
		if ex.Status == status {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Shift handovers

func (r *InMemoryRepository) CreateHandover(ctx context.Context, h *models.ShiftHandover) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handovers[h.ID] = cloneHandover(h)
	return nil
}

func (r *InMemoryRepository) GetHandover(ctx context.Context, id string) (*models.ShiftHandover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handovers[id]
	if !ok {
		return nil, ErrHandoverNotFound
	}
	return cloneHandover(h), nil
}

func (r *InMemoryRepository) SaveHandover(ctx context.Context, h *models.ShiftHandover) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handovers[h.ID]; !ok {
		return ErrHandoverNotFound
	}
	r.handovers[h.ID] = cloneHandover(h)
	return nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error { return nil }
func (r *InMemoryRepository) Close() error                   { return nil }

// ---------------------------------------------------------------------------
// Helpers
//
// Stored entities are cloned on every read and write so callers can never
// mutate the store through returned maps and slices.

func cloneAlert(a *models.Alert) *models.Alert {
	cp := *a
	cp.MitreTactics = cloneStrings(a.MitreTactics)
	cp.MitreTechniques = cloneStrings(a.MitreTechniques)
	cp.AffectedEntities = cloneStrings(a.AffectedEntities)
	cp.Enrichment = cloneValueMap(a.Enrichment)
	cp.Tags = cloneStrings(a.Tags)
	cp.RawEvent = cloneValueMap(a.RawEvent)
	return &cp
}

// clonePlaybook copies the playbook's condition map and action list. Action
// parameter structs are never mutated after storage.
func clonePlaybook(p *models.Playbook) *models.Playbook {
	cp := *p
	cp.TriggerConditions.Fields = cloneStringMap(p.TriggerConditions.Fields)
	if p.Actions != nil {
		cp.Actions = append([]models.Action(nil), p.Actions...)
	}
	return &cp
}

func cloneExecution(ex *models.PlaybookExecution) *models.PlaybookExecution {
	cp := *ex
	if ex.ActionResults != nil {
		cp.ActionResults = append([]models.ActionResult(nil), ex.ActionResults...)
	}
	return &cp
}

func cloneHandover(h *models.ShiftHandover) *models.ShiftHandover {
	cp := *h
	cp.OpenAlertIDs = cloneStrings(h.OpenAlertIDs)
	cp.OpenCaseIDs = cloneStrings(h.OpenCaseIDs)
	return &cp
}

func cloneTimelineEntry(e *models.CaseTimelineEntry) *models.CaseTimelineEntry {
	cp := *e
	cp.Evidence = cloneStrings(e.Evidence)
	return &cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneValueMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneValueMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
