package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vantor-systems/vantor-soc/internal/events"
	"github.com/vantor-systems/vantor-soc/internal/idgen"
	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
)

func isValidPriority(priority string) bool {
	switch priority {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return true
	}
	return false
}

// CaseService handles business logic for investigation cases.
type CaseService struct {
	repo repository.Repository
	ids  *idgen.Generator
	sink TriggerSink
	bus  *events.Publisher
}

// NewCaseService creates a new case service.
func NewCaseService(repo repository.Repository, ids *idgen.Generator) *CaseService {
	return &CaseService{repo: repo, ids: ids}
}

// SetTriggerSink wires the playbook trigger evaluation hook.
func (s *CaseService) SetTriggerSink(sink TriggerSink) {
	s.sink = sink
}

// SetEventPublisher wires the lifecycle event publisher. The publisher is
// nil-safe, so leaving it unset disables bus publishing.
func (s *CaseService) SetEventPublisher(bus *events.Publisher) {
	s.bus = bus
}

// CreateCase opens a new case, optionally linking seed alerts.
func (s *CaseService) CreateCase(ctx context.Context, req *models.CreateCaseRequest, tenantID, actor string) (*models.Case, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !isValidPriority(req.Priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, req.Priority)
	}

	now := time.Now().UTC()
	caseUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate case id: %w", err)
	}
	caseNumber, err := s.ids.CaseNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	c := &models.Case{
		ID:           caseUUID.String(),
		CaseNumber:   caseNumber,
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.CaseStatusOpen,
		Priority:     req.Priority,
		AssigneeID:   req.AssigneeID,
		AssignedTeam: req.Team,
		OpenedAt:     now,
		TenantID:     tenantID,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateCase(ctx, c); err != nil {
		return nil, err
	}

	for _, alertID := range req.AlertIDs {
		if _, err := s.LinkAlert(ctx, c.ID, alertID, actor); err != nil {
			return nil, fmt.Errorf("failed to link seed alert %s: %w", alertID, err)
		}
	}

	s.bus.CaseCreated(ctx, c)
	if s.sink != nil {
		s.sink.CaseCreated(ctx, c)
	}
	return s.repo.GetCase(ctx, c.ID)
}

// GetCase retrieves a case by ID.
func (s *CaseService) GetCase(ctx context.Context, id string) (*models.Case, error) {
	return s.repo.GetCase(ctx, id)
}

// ListCases retrieves a paginated list of cases.
func (s *CaseService) ListCases(ctx context.Context, req *models.ListCasesRequest) (*models.ListCasesResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 50
	}

	cases, total, err := s.repo.ListCases(ctx, req)
	if err != nil {
		return nil, err
	}

	totalPages := (total + req.Limit - 1) / req.Limit
	return &models.ListCasesResponse{
		Cases: cases,
		Pagination: models.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// LinkAlert links an alert to a case. Linking an already-linked alert is a
// no-op; a timeline entry is only appended for new links.
func (s *CaseService) LinkAlert(ctx context.Context, caseID, alertID, actor string) (*models.Case, error) {
	linked, err := s.repo.LinkAlertToCase(ctx, caseID, alertID, actor)
	if err != nil {
		return nil, err
	}

	if linked {
		if err := s.appendTimeline(ctx, caseID, models.TimelineEntryAlertLink,
			fmt.Sprintf("alert %s linked to case", alertID), actor, nil); err != nil {
			return nil, err
		}
	}
	return s.repo.GetCase(ctx, caseID)
}

// Escalate escalates a case to a target owner, appending an escalation
// timeline entry.
func (s *CaseService) Escalate(ctx context.Context, caseID string, req *models.EscalateCaseRequest, actor string) (*models.Case, error) {
	if req.Target == "" {
		return nil, fmt.Errorf("%w: escalation target is required", ErrValidation)
	}

	c, err := s.repo.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalCaseStatus(c.Status) {
		return nil, fmt.Errorf("%w: cannot escalate case in status %s", ErrInvalidTransition, c.Status)
	}

	now := time.Now().UTC()
	c.Status = models.CaseStatusEscalated
	c.EscalatedTo = &req.Target
	c.EscalationReason = req.Reason
	c.EscalatedAt = &now
	c.UpdatedAt = now

	if err := s.repo.SaveCase(ctx, c); err != nil {
		return nil, err
	}

	if err := s.appendTimeline(ctx, caseID, models.TimelineEntryEscalation,
		fmt.Sprintf("escalated to %s: %s", req.Target, req.Reason), actor, nil); err != nil {
		return nil, err
	}
	s.bus.CaseEscalated(ctx, c)
	return s.repo.GetCase(ctx, caseID)
}

// Resolve resolves a case. time_to_resolve is derived from resolved_at -
// opened_at and never accepted from the caller.
func (s *CaseService) Resolve(ctx context.Context, caseID string, req *models.ResolveCaseRequest, actor string) (*models.Case, error) {
	if req.Summary == "" {
		return nil, fmt.Errorf("%w: resolution summary is required", ErrValidation)
	}

	c, err := s.repo.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalCaseStatus(c.Status) {
		return nil, fmt.Errorf("%w: case already in terminal status %s", ErrInvalidTransition, c.Status)
	}

	now := time.Now().UTC()
	if now.Before(c.OpenedAt) {
		return nil, fmt.Errorf("%w: resolution before case opened", ErrInvalidState)
	}

	ttr := int64(now.Sub(c.OpenedAt).Seconds())
	c.Status = models.CaseStatusResolved
	c.ResolvedAt = &now
	c.TimeToResolve = &ttr
	c.ResolutionSummary = req.Summary
	c.RootCause = req.RootCause
	c.LessonsLearned = req.LessonsLearned
	c.UpdatedAt = now

	if err := s.repo.SaveCase(ctx, c); err != nil {
		return nil, err
	}

	if err := s.appendTimeline(ctx, caseID, models.TimelineEntryResolution,
		"case resolved: "+req.Summary, actor, nil); err != nil {
		return nil, err
	}
	s.bus.CaseResolved(ctx, c)
	return s.repo.GetCase(ctx, caseID)
}

// AddTask adds a work item to an existing case. Creating a task on a
// non-existent case fails with the repository's not-found error.
func (s *CaseService) AddTask(ctx context.Context, caseID string, req *models.CreateTaskRequest, actor string) (*models.CaseTask, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidation)
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task id: %w", err)
	}
	t := &models.CaseTask{
		ID:          taskUUID.String(),
		CaseID:      caseID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatusPending,
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
		CreatedBy:   actor,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteTask marks a case task completed.
func (s *CaseService) CompleteTask(ctx context.Context, caseID, taskID string) (*models.CaseTask, error) {
	t, err := s.repo.GetTask(ctx, caseID, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TaskStatusCompleted {
		return t, nil
	}

	now := time.Now().UTC()
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &now
	if err := s.repo.SaveTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks retrieves the tasks of a case.
func (s *CaseService) ListTasks(ctx context.Context, caseID string) ([]*models.CaseTask, error) {
	return s.repo.ListTasks(ctx, caseID)
}

// ListTimeline retrieves a case timeline in chronological order.
func (s *CaseService) ListTimeline(ctx context.Context, caseID string) ([]*models.CaseTimelineEntry, error) {
	return s.repo.ListTimeline(ctx, caseID)
}

// AppendNote appends a free-form note to the case timeline.
func (s *CaseService) AppendNote(ctx context.Context, caseID, note, author string) error {
	if note == "" {
		return fmt.Errorf("%w: note is required", ErrValidation)
	}
	return s.appendTimeline(ctx, caseID, models.TimelineEntryNote, note, author, nil)
}

func (s *CaseService) appendTimeline(ctx context.Context, caseID, entryType, description, author string, evidence []string) error {
	entryUUID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate timeline id: %w", err)
	}
	return s.repo.AppendTimeline(ctx, &models.CaseTimelineEntry{
		ID:          entryUUID.String(),
		CaseID:      caseID,
		EntryType:   entryType,
		Description: description,
		Author:      author,
		Evidence:    evidence,
		CreatedAt:   time.Now().UTC(),
	})
}
