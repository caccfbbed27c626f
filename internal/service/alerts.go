// Package service implements the business logic of the SOC core.
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

// TriggerSink receives entity lifecycle events for playbook trigger
// evaluation. Implementations must not block alert/case writes.
type TriggerSink interface {
	AlertCreated(ctx context.Context, a *models.Alert)
	AlertUpdated(ctx context.Context, a *models.Alert)
	CaseCreated(ctx context.Context, c *models.Case)
}

// alertTransitions is the alert status state machine. An assign or
// acknowledge from a state not listed here fails with ErrInvalidTransition.
var alertTransitions = map[string][]string{
	models.AlertStatusNew:        {models.AlertStatusAssigned, models.AlertStatusInProgress, models.AlertStatusEscalated},
	models.AlertStatusAssigned:   {models.AlertStatusInProgress, models.AlertStatusEscalated, models.AlertStatusPending, models.AlertStatusResolved, models.AlertStatusClosed, models.AlertStatusFalsePositive},
	models.AlertStatusInProgress: {models.AlertStatusAssigned, models.AlertStatusEscalated, models.AlertStatusPending, models.AlertStatusResolved, models.AlertStatusClosed, models.AlertStatusFalsePositive},
	models.AlertStatusEscalated:  {models.AlertStatusAssigned, models.AlertStatusInProgress, models.AlertStatusPending, models.AlertStatusResolved, models.AlertStatusClosed, models.AlertStatusFalsePositive},
	models.AlertStatusPending:    {models.AlertStatusAssigned, models.AlertStatusInProgress, models.AlertStatusResolved, models.AlertStatusClosed, models.AlertStatusFalsePositive},
}

func alertCanTransition(from, to string) bool {
	for _, s := range alertTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AlertService handles business logic for alerts.
type AlertService struct {
	repo repository.Repository
	ids  *idgen.Generator
	sink TriggerSink
	bus  *events.Publisher
}

// NewAlertService creates a new alert service.
func NewAlertService(repo repository.Repository, ids *idgen.Generator) *AlertService {
	return &AlertService{repo: repo, ids: ids}
}

// SetTriggerSink wires the playbook trigger evaluation hook. A nil sink
// disables automation.
func (s *AlertService) SetTriggerSink(sink TriggerSink) {
	s.sink = sink
}

// SetEventPublisher wires the lifecycle event publisher. The publisher is
// nil-safe, so leaving it unset disables bus publishing.
func (s *AlertService) SetEventPublisher(bus *events.Publisher) {
	s.bus = bus
}

func isValidSeverity(severity string) bool {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh, models.SeverityMedium,
		models.SeverityLow, models.SeverityInformational:
		return true
	}
	return false
}

// CreateAlert creates a new alert in status new.
func (s *AlertService) CreateAlert(ctx context.Context, req *models.CreateAlertRequest, tenantID, actor string) (*models.Alert, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !isValidSeverity(req.Severity) {
		return nil, fmt.Errorf("%w: invalid severity %q", ErrValidation, req.Severity)
	}
	if req.Source == "" {
		return nil, fmt.Errorf("%w: source is required", ErrValidation)
	}

	now := time.Now().UTC()
	detectedAt := now
	if req.DetectedAt != nil {
		detectedAt = req.DetectedAt.UTC()
	}
	firstSeen := detectedAt
	if req.FirstSeen != nil {
		firstSeen = req.FirstSeen.UTC()
	}
	lastSeen := detectedAt
	if req.LastSeen != nil {
		lastSeen = req.LastSeen.UTC()
	}

	alertUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate alert id: %w", err)
	}
	alertID, err := s.ids.AlertID(ctx, now)
	if err != nil {
		return nil, err
	}

	a := &models.Alert{
		ID:               alertUUID.String(),
		AlertID:          alertID,
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		Status:           models.AlertStatusNew,
		Source:           req.Source,
		RuleName:         req.RuleName,
		MitreTactics:     req.MitreTactics,
		MitreTechniques:  req.MitreTechniques,
		AffectedEntities: req.AffectedEntities,
		Enrichment:       req.Enrichment,
		RiskScore:        req.RiskScore,
		ConfidenceScore:  req.ConfidenceScore,
		DetectedAt:       detectedAt,
		FirstSeen:        firstSeen,
		LastSeen:         lastSeen,
		CorrelationID:    req.CorrelationID,
		ParentAlertID:    req.ParentAlertID,
		Tags:             req.Tags,
		RawEvent:         req.RawEvent,
		TenantID:         tenantID,
		CreatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.CreateAlert(ctx, a); err != nil {
		return nil, err
	}

	s.bus.AlertCreated(ctx, a)
	if s.sink != nil {
		s.sink.AlertCreated(ctx, a)
	}
	return a, nil
}

// BulkCreateAlerts creates several alerts as a fold of single creation.
// Each alert gets a fresh sequential ID; there is no cross-item
// transactionality.
func (s *AlertService) BulkCreateAlerts(ctx context.Context, req *models.BulkCreateAlertsRequest, tenantID, actor string) ([]*models.Alert, error) {
	if len(req.Alerts) == 0 {
		return nil, fmt.Errorf("%w: no alerts provided", ErrValidation)
	}

	created := make([]*models.Alert, 0, len(req.Alerts))
	for i := range req.Alerts {
		a, err := s.CreateAlert(ctx, &req.Alerts[i], tenantID, actor)
		if err != nil {
			return created, fmt.Errorf("alert %d: %w", i, err)
		}
		created = append(created, a)
	}
	return created, nil
}

// GetAlert retrieves an alert by ID.
func (s *AlertService) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return s.repo.GetAlert(ctx, id)
}

// ListAlerts retrieves a paginated list of alerts.
func (s *AlertService) ListAlerts(ctx context.Context, req *models.ListAlertsRequest) (*models.ListAlertsResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 50
	}

	alerts, total, err := s.repo.ListAlerts(ctx, req)
	if err != nil {
		return nil, err
	}

	totalPages := (total + req.Limit - 1) / req.Limit
	return &models.ListAlertsResponse{
		Alerts: alerts,
		Pagination: models.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// UpdateAlert applies a partial update to an alert's descriptive fields.
func (s *AlertService) UpdateAlert(ctx context.Context, id string, req *models.UpdateAlertRequest) (*models.Alert, error) {
	if req.Severity != nil && !isValidSeverity(*req.Severity) {
		return nil, fmt.Errorf("%w: invalid severity %q", ErrValidation, *req.Severity)
	}

	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Severity != nil {
		a.Severity = *req.Severity
	}
	if req.Enrichment != nil {
		a.Enrichment = req.Enrichment
	}
	if req.RiskScore != nil {
		a.RiskScore = *req.RiskScore
	}
	if req.Tags != nil {
		a.Tags = req.Tags
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveAlert(ctx, a); err != nil {
		return nil, err
	}

	s.bus.AlertUpdated(ctx, a)
	if s.sink != nil {
		s.sink.AlertUpdated(ctx, a)
	}
	return a, nil
}

// ApplyEnrichment replaces an alert's enrichment map without re-evaluating
// playbook triggers. Automation writes go through this path so an enrich
// action can never re-trigger the playbook that produced it.
func (s *AlertService) ApplyEnrichment(ctx context.Context, id string, enrichment map[string]interface{}) (*models.Alert, error) {
	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	a.Enrichment = enrichment
	a.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveAlert(ctx, a); err != nil {
		return nil, err
	}
	s.bus.AlertUpdated(ctx, a)
	return a, nil
}

// AssignAlert assigns an alert to an analyst. Allowed from any non-terminal
// state; the alert status becomes assigned.
func (s *AlertService) AssignAlert(ctx context.Context, id string, req *models.AssignAlertRequest) (*models.Alert, error) {
	if req.Assignee == "" {
		return nil, fmt.Errorf("%w: assignee is required", ErrValidation)
	}

	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if models.IsTerminalAlertStatus(a.Status) {
		return nil, fmt.Errorf("%w: cannot assign alert in status %s", ErrInvalidTransition, a.Status)
	}
	if a.Status != models.AlertStatusAssigned && !alertCanTransition(a.Status, models.AlertStatusAssigned) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, models.AlertStatusAssigned)
	}

	now := time.Now().UTC()
	a.AssignedTo = &req.Assignee
	a.AssignedAt = &now
	a.Status = models.AlertStatusAssigned
	a.UpdatedAt = now

	if err := s.repo.SaveAlert(ctx, a); err != nil {
		return nil, err
	}
	s.bus.AlertUpdated(ctx, a)
	return a, nil
}

// AcknowledgeAlert stamps acknowledged_at; a new alert advances to
// in_progress. Acknowledging an already-acknowledged alert is idempotent.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if models.IsTerminalAlertStatus(a.Status) {
		return nil, fmt.Errorf("%w: cannot acknowledge alert in status %s", ErrInvalidTransition, a.Status)
	}

	now := time.Now().UTC()
	if a.AcknowledgedAt == nil {
		if now.Before(a.DetectedAt) {
			return nil, fmt.Errorf("%w: acknowledgement before detection", ErrInvalidState)
		}
		a.AcknowledgedAt = &now
	}
	if a.Status == models.AlertStatusNew {
		a.Status = models.AlertStatusInProgress
	}
	a.UpdatedAt = now

	if err := s.repo.SaveAlert(ctx, a); err != nil {
		return nil, err
	}
	s.bus.AlertUpdated(ctx, a)
	return a, nil
}

// ResolveAlert resolves an alert, optionally as a false positive.
func (s *AlertService) ResolveAlert(ctx context.Context, id string, req *models.ResolveAlertRequest) (*models.Alert, error) {
	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	target := models.AlertStatusResolved
	if req.IsFalsePositive {
		if req.FalsePositiveReason == "" {
			return nil, fmt.Errorf("%w: false_positive_reason is required", ErrValidation)
		}
		target = models.AlertStatusFalsePositive
	}

	if models.IsTerminalAlertStatus(a.Status) {
		return nil, fmt.Errorf("%w: alert already in terminal status %s", ErrInvalidTransition, a.Status)
	}
	if !alertCanTransition(a.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
	}

	now := time.Now().UTC()
	if now.Before(a.DetectedAt) {
		return nil, fmt.Errorf("%w: resolution before detection", ErrInvalidState)
	}
	a.ResolvedAt = &now
	a.ResolutionNotes = req.Notes
	a.FalsePositiveReason = req.FalsePositiveReason
	a.Status = target
	a.UpdatedAt = now

	if err := s.repo.SaveAlert(ctx, a); err != nil {
		return nil, err
	}
	s.bus.AlertUpdated(ctx, a)
	return a, nil
}

// AddComment appends a comment to an alert.
func (s *AlertService) AddComment(ctx context.Context, alertID string, req *models.AddCommentRequest, author string) (*models.AlertComment, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	commentUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate comment id: %w", err)
	}
	c := &models.AlertComment{
		ID:         commentUUID.String(),
		AlertID:    alertID,
		Author:     author,
		Content:    req.Content,
		IsInternal: req.IsInternal,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.AddAlertComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments retrieves the comments on an alert in creation order.
func (s *AlertService) ListComments(ctx context.Context, alertID string) ([]*models.AlertComment, error) {
	return s.repo.ListAlertComments(ctx, alertID)
}
