// Package reporting derives SOC KPIs and shift handover snapshots from
// alert, case and execution history. It is a pure read side: nothing here is
// mutated by the execution path.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
	"github.com/vantor-systems/vantor-soc/internal/service"
)

// openAlertStatuses are the alert statuses counted as open on the dashboard.
var openAlertStatuses = []string{
	models.AlertStatusNew,
	models.AlertStatusAssigned,
	models.AlertStatusInProgress,
	models.AlertStatusPending,
	models.AlertStatusEscalated,
}

// openCaseStatuses are the case statuses counted as open on the dashboard.
var openCaseStatuses = []string{
	models.CaseStatusOpen,
	models.CaseStatusInProgress,
	models.CaseStatusPendingInfo,
	models.CaseStatusEscalated,
}

// Service computes SOC metrics and manages shift handovers.
type Service struct {
	repo repository.Repository
}

// NewService creates a new reporting service.
func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// ComputeMetrics aggregates SOC KPIs over the given window. MTTD is the mean
// of acknowledged_at - detected_at over acknowledged alerts, MTTR the mean
// of resolved_at - detected_at over resolved alerts, MTTC the mean of
// resolved_at - opened_at over resolved cases.
func (s *Service) ComputeMetrics(ctx context.Context, req *models.MetricsWindowRequest) (*models.SOCMetrics, error) {
	if !req.To.After(req.From) {
		return nil, fmt.Errorf("%w: window end must be after window start", service.ErrValidation)
	}

	alerts, err := s.repo.ListAlertsInWindow(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}
	cases, err := s.repo.ListCasesInWindow(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}
	executions, err := s.repo.ListExecutionsInWindow(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}

	m := &models.SOCMetrics{
		WindowFrom:       req.From,
		WindowTo:         req.To,
		AlertsBySeverity: make(map[string]int),
		AlertsByStatus:   make(map[string]int),
		AlertsBySource:   make(map[string]int),
		CasesByStatus:    make(map[string]int),
	}

	var detectSum, respondSum float64
	var detectN, respondN int
	for _, a := range alerts {
		m.AlertsBySeverity[a.Severity]++
		m.AlertsByStatus[a.Status]++
		m.AlertsBySource[a.Source]++

		if a.AcknowledgedAt != nil {
			detectSum += a.AcknowledgedAt.Sub(a.DetectedAt).Seconds()
			detectN++
		}
		if a.ResolvedAt != nil {
			respondSum += a.ResolvedAt.Sub(a.DetectedAt).Seconds()
			respondN++
		}
	}
	if detectN > 0 {
		m.MTTDSeconds = detectSum / float64(detectN)
	}
	if respondN > 0 {
		m.MTTRSeconds = respondSum / float64(respondN)
	}

	var containSum float64
	var containN int
	for _, c := range cases {
		m.CasesByStatus[c.Status]++
		if c.ResolvedAt != nil {
			containSum += c.ResolvedAt.Sub(c.OpenedAt).Seconds()
			containN++
		}
	}
	if containN > 0 {
		m.MTTCSeconds = containSum / float64(containN)
	}

	automated := 0
	for _, ex := range executions {
		m.TotalExecutions++
		switch ex.Status {
		case models.ExecutionStatusCompleted:
			m.CompletedExecutions++
			if ex.ExecutedBy == "system" {
				automated++
			}
		case models.ExecutionStatusFailed, models.ExecutionStatusPartial:
			m.FailedExecutions++
		}
	}
	if len(alerts) > 0 {
		m.AutomationRate = float64(automated) / float64(len(alerts))
	}

	return m, nil
}

// DashboardStats builds the current-state dashboard snapshot.
func (s *Service) DashboardStats(ctx context.Context) (*models.SOCDashboardStats, error) {
	openAlerts, err := s.repo.CountAlertsInStatuses(ctx, openAlertStatuses)
	if err != nil {
		return nil, err
	}
	openCases, err := s.repo.CountCasesInStatuses(ctx, openCaseStatuses)
	if err != nil {
		return nil, err
	}
	running, err := s.repo.CountAllExecutionsInStatus(ctx, models.ExecutionStatusRunning)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.CountAllExecutionsInStatus(ctx, models.ExecutionStatusPending)
	if err != nil {
		return nil, err
	}
	playbooks, err := s.repo.CountPlaybooksInStatus(ctx, models.PlaybookStatusActive)
	if err != nil {
		return nil, err
	}

	// Severity breakdown over a trailing day keeps the dashboard query cheap.
	now := time.Now().UTC()
	alerts, err := s.repo.ListAlertsInWindow(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return nil, err
	}
	bySeverity := make(map[string]int)
	for _, a := range alerts {
		bySeverity[a.Severity]++
	}

	return &models.SOCDashboardStats{
		OpenAlerts:        openAlerts,
		OpenCases:         openCases,
		AlertsBySeverity:  bySeverity,
		RunningExecutions: running,
		PendingApprovals:  pending,
		ActivePlaybooks:   playbooks,
		GeneratedAt:       now,
	}, nil
}

// CreateHandover authors a shift handover snapshot. With PrePopulate set,
// the open alert and case lists are filled from current query results.
func (s *Service) CreateHandover(ctx context.Context, req *models.CreateHandoverRequest, tenantID, analyst string) (*models.ShiftHandover, error) {
	if req.Summary == "" {
		return nil, fmt.Errorf("%w: summary is required", service.ErrValidation)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate handover id: %w", err)
	}

	h := &models.ShiftHandover{
		ID:              id.String(),
		Summary:         req.Summary,
		Notes:           req.Notes,
		OutgoingAnalyst: analyst,
		OpenAlertIDs:    req.OpenAlertIDs,
		OpenCaseIDs:     req.OpenCaseIDs,
		TenantID:        tenantID,
		CreatedAt:       time.Now().UTC(),
	}

	if req.PrePopulate {
		alerts, _, err := s.repo.ListAlerts(ctx, &models.ListAlertsRequest{Page: 1, Limit: 100})
		if err != nil {
			return nil, err
		}
		for _, a := range alerts {
			if !models.IsTerminalAlertStatus(a.Status) {
				h.OpenAlertIDs = append(h.OpenAlertIDs, a.ID)
			}
		}
		cases, _, err := s.repo.ListCases(ctx, &models.ListCasesRequest{Page: 1, Limit: 100})
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			if !models.IsTerminalCaseStatus(c.Status) {
				h.OpenCaseIDs = append(h.OpenCaseIDs, c.ID)
			}
		}
	}

	if err := s.repo.CreateHandover(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHandover retrieves a shift handover by ID.
func (s *Service) GetHandover(ctx context.Context, id string) (*models.ShiftHandover, error) {
	return s.repo.GetHandover(ctx, id)
}

// AcknowledgeHandover records the incoming analyst's acknowledgement.
// Acknowledging twice fails rather than silently reassigning the handover.
func (s *Service) AcknowledgeHandover(ctx context.Context, id, analyst string) (*models.ShiftHandover, error) {
	h, err := s.repo.GetHandover(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.AcknowledgedAt != nil {
		return nil, fmt.Errorf("%w: handover already acknowledged", service.ErrInvalidState)
	}

	now := time.Now().UTC()
	h.IncomingAnalyst = &analyst
	h.AcknowledgedAt = &now
	if err := s.repo.SaveHandover(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}
