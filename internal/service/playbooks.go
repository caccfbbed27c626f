package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
)

const (
	defaultMaxConcurrentRuns = 1
	defaultTimeoutSeconds    = 300
)

var validTriggerTypes = map[string]bool{
	models.TriggerManual:        true,
	models.TriggerAlertCreated:  true,
	models.TriggerAlertSeverity: true,
	models.TriggerAlertSource:   true,
	models.TriggerCaseCreated:   true,
	models.TriggerScheduled:     true,
	models.TriggerIOCMatch:      true,
}

// PlaybookService handles business logic for playbook definitions.
type PlaybookService struct {
	repo repository.Repository
}

// NewPlaybookService creates a new playbook service.
func NewPlaybookService(repo repository.Repository) *PlaybookService {
	return &PlaybookService{repo: repo}
}

func validateActions(actions []models.Action) error {
	if len(actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrValidation)
	}
	for i, a := range actions {
		if a.Type == "" {
			return fmt.Errorf("%w: action %d has no type", ErrValidation, i)
		}
	}
	return nil
}

// CreatePlaybook registers a new playbook in draft status.
func (s *PlaybookService) CreatePlaybook(ctx context.Context, req *models.CreatePlaybookRequest, tenantID, actor string) (*models.Playbook, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !validTriggerTypes[req.TriggerType] {
		return nil, fmt.Errorf("%w: invalid trigger type %q", ErrValidation, req.TriggerType)
	}
	if req.TriggerConditions.MinSeverity != "" && models.SeverityRank(req.TriggerConditions.MinSeverity) == 0 {
		return nil, fmt.Errorf("%w: invalid min_severity %q", ErrValidation, req.TriggerConditions.MinSeverity)
	}
	if err := validateActions(req.Actions); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate playbook id: %w", err)
	}

	now := time.Now().UTC()
	p := &models.Playbook{
		ID:                id.String(),
		Name:              req.Name,
		Description:       req.Description,
		Status:            models.PlaybookStatusDraft,
		Version:           1,
		TriggerType:       req.TriggerType,
		TriggerConditions: req.TriggerConditions,
		Actions:           req.Actions,
		IsEnabled:         false,
		RunAutomatically:  req.RunAutomatically,
		RequireApproval:   req.RequireApproval,
		MaxConcurrentRuns: req.MaxConcurrentRuns,
		TimeoutSeconds:    req.TimeoutSeconds,
		TenantID:          tenantID,
		CreatedBy:         actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if p.MaxConcurrentRuns <= 0 {
		p.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultTimeoutSeconds
	}

	if err := s.repo.CreatePlaybook(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlaybook retrieves a playbook by ID.
func (s *PlaybookService) GetPlaybook(ctx context.Context, id string) (*models.Playbook, error) {
	return s.repo.GetPlaybook(ctx, id)
}

// ListPlaybooks retrieves a paginated list of playbooks.
func (s *PlaybookService) ListPlaybooks(ctx context.Context, req *models.ListPlaybooksRequest) (*models.ListPlaybooksResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 50
	}

	playbooks, total, err := s.repo.ListPlaybooks(ctx, req)
	if err != nil {
		return nil, err
	}

	totalPages := (total + req.Limit - 1) / req.Limit
	return &models.ListPlaybooksResponse{
		Playbooks: playbooks,
		Pagination: models.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// UpdatePlaybook applies a partial update and bumps the playbook version.
func (s *PlaybookService) UpdatePlaybook(ctx context.Context, id string, req *models.UpdatePlaybookRequest) (*models.Playbook, error) {
	p, err := s.repo.GetPlaybook(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		switch *req.Status {
		case models.PlaybookStatusDraft, models.PlaybookStatusActive,
			models.PlaybookStatusDisabled, models.PlaybookStatusArchived:
			p.Status = *req.Status
		default:
			return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *req.Status)
		}
	}
	if req.TriggerType != nil {
		if !validTriggerTypes[*req.TriggerType] {
			return nil, fmt.Errorf("%w: invalid trigger type %q", ErrValidation, *req.TriggerType)
		}
		p.TriggerType = *req.TriggerType
	}
	if req.TriggerConditions != nil {
		if req.TriggerConditions.MinSeverity != "" && models.SeverityRank(req.TriggerConditions.MinSeverity) == 0 {
			return nil, fmt.Errorf("%w: invalid min_severity %q", ErrValidation, req.TriggerConditions.MinSeverity)
		}
		p.TriggerConditions = *req.TriggerConditions
	}
	if req.Actions != nil {
		if err := validateActions(req.Actions); err != nil {
			return nil, err
		}
		p.Actions = req.Actions
	}
	if req.RunAutomatically != nil {
		p.RunAutomatically = *req.RunAutomatically
	}
	if req.RequireApproval != nil {
		p.RequireApproval = *req.RequireApproval
	}
	if req.MaxConcurrentRuns != nil {
		if *req.MaxConcurrentRuns < 1 {
			return nil, fmt.Errorf("%w: max_concurrent_runs must be at least 1", ErrValidation)
		}
		p.MaxConcurrentRuns = *req.MaxConcurrentRuns
	}
	if req.TimeoutSeconds != nil {
		if *req.TimeoutSeconds < 1 {
			return nil, fmt.Errorf("%w: timeout_seconds must be at least 1", ErrValidation)
		}
		p.TimeoutSeconds = *req.TimeoutSeconds
	}

	p.Version++
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.SavePlaybook(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EnablePlaybook activates a playbook for trigger matching. Archived
// playbooks cannot be re-enabled.
func (s *PlaybookService) EnablePlaybook(ctx context.Context, id string) (*models.Playbook, error) {
	p, err := s.repo.GetPlaybook(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PlaybookStatusArchived {
		return nil, fmt.Errorf("%w: cannot enable archived playbook", ErrInvalidTransition)
	}

	p.Status = models.PlaybookStatusActive
	p.IsEnabled = true
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.SavePlaybook(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DisablePlaybook deactivates a playbook. In-flight executions are not
// affected; the playbook stops matching new triggers.
func (s *PlaybookService) DisablePlaybook(ctx context.Context, id string) (*models.Playbook, error) {
	p, err := s.repo.GetPlaybook(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Status = models.PlaybookStatusDisabled
	p.IsEnabled = false
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.SavePlaybook(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
