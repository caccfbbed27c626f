package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
	"github.com/vantor-systems/vantor-soc/internal/service"
)

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func insertAlert(t *testing.T, repo repository.Repository, detected time.Time, mutate func(*models.Alert)) *models.Alert {
	t.Helper()
	a := &models.Alert{
		ID:         newID(t),
		AlertID:    "ALERT-20260515-0001",
		Title:      "suspicious login",
		Severity:   models.SeverityMedium,
		Status:     models.AlertStatusNew,
		Source:     "siem",
		DetectedAt: detected,
		TenantID:   "default",
		CreatedAt:  detected,
	}
	if mutate != nil {
		mutate(a)
	}
	require.NoError(t, repo.CreateAlert(context.Background(), a))
	return a
}

func insertCase(t *testing.T, repo repository.Repository, opened time.Time, mutate func(*models.Case)) *models.Case {
	t.Helper()
	c := &models.Case{
		ID:         newID(t),
		CaseNumber: "CASE-2026-0001",
		Title:      "phishing campaign",
		Status:     models.CaseStatusOpen,
		Priority:   models.SeverityMedium,
		OpenedAt:   opened,
		TenantID:   "default",
		CreatedAt:  opened,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, repo.CreateCase(context.Background(), c))
	return c
}

func insertExecution(t *testing.T, repo repository.Repository, created time.Time, status, executedBy string) {
	t.Helper()
	ex := &models.PlaybookExecution{
		ID:         newID(t),
		PlaybookID: "pb-1",
		Status:     status,
		ExecutedBy: executedBy,
		TenantID:   "default",
		CreatedAt:  created,
	}
	require.NoError(t, repo.CreateExecution(context.Background(), ex))
}

func TestComputeMetrics(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo)

	base := time.Date(2026, 5, 15, 8, 0, 0, 0, time.UTC)

	// Acknowledged after 60s, resolved after 600s.
	insertAlert(t, repo, base, func(a *models.Alert) {
		a.Severity = models.SeverityCritical
		a.Source = "edr"
		a.Status = models.AlertStatusResolved
		ack := base.Add(60 * time.Second)
		res := base.Add(600 * time.Second)
		a.AcknowledgedAt = &ack
		a.ResolvedAt = &res
	})
	// Acknowledged after 120s, still in progress.
	insertAlert(t, repo, base.Add(10*time.Minute), func(a *models.Alert) {
		a.Severity = models.SeverityHigh
		a.Status = models.AlertStatusInProgress
		ack := base.Add(10*time.Minute + 120*time.Second)
		a.AcknowledgedAt = &ack
	})
	// Never acknowledged.
	insertAlert(t, repo, base.Add(20*time.Minute), func(a *models.Alert) {
		a.Severity = models.SeverityHigh
		a.Source = "edr"
	})
	// Outside the window, must not contribute anywhere.
	insertAlert(t, repo, base.Add(-2*time.Hour), func(a *models.Alert) {
		a.Severity = models.SeverityCritical
	})

	insertCase(t, repo, base, func(c *models.Case) {
		c.Status = models.CaseStatusResolved
		res := base.Add(30 * time.Minute)
		c.ResolvedAt = &res
	})
	insertCase(t, repo, base.Add(5*time.Minute), nil)

	insertExecution(t, repo, base, models.ExecutionStatusCompleted, "system")
	insertExecution(t, repo, base, models.ExecutionStatusCompleted, "analyst@soc")
	insertExecution(t, repo, base, models.ExecutionStatusFailed, "system")
	insertExecution(t, repo, base, models.ExecutionStatusPartial, "system")
	insertExecution(t, repo, base, models.ExecutionStatusRunning, "system")

	m, err := svc.ComputeMetrics(context.Background(), &models.MetricsWindowRequest{
		From: base.Add(-time.Hour),
		To:   base.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.InDelta(t, 90.0, m.MTTDSeconds, 0.001)
	assert.InDelta(t, 600.0, m.MTTRSeconds, 0.001)
	assert.InDelta(t, 1800.0, m.MTTCSeconds, 0.001)

	assert.Equal(t, map[string]int{
		models.SeverityCritical: 1,
		models.SeverityHigh:     2,
	}, m.AlertsBySeverity)
	assert.Equal(t, 2, m.AlertsBySource["edr"])
	assert.Equal(t, 1, m.AlertsByStatus[models.AlertStatusNew])
	assert.Equal(t, map[string]int{
		models.CaseStatusResolved: 1,
		models.CaseStatusOpen:     1,
	}, m.CasesByStatus)

	assert.Equal(t, 5, m.TotalExecutions)
	assert.Equal(t, 2, m.CompletedExecutions)
	assert.Equal(t, 2, m.FailedExecutions)
	// One system-completed execution over three in-window alerts.
	assert.InDelta(t, 1.0/3.0, m.AutomationRate, 0.001)
}

func TestComputeMetricsEmptyWindow(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo)

	from := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	m, err := svc.ComputeMetrics(context.Background(), &models.MetricsWindowRequest{
		From: from,
		To:   from.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Zero(t, m.MTTDSeconds)
	assert.Zero(t, m.MTTRSeconds)
	assert.Zero(t, m.MTTCSeconds)
	assert.Zero(t, m.AutomationRate)
	assert.Empty(t, m.AlertsBySeverity)
}

func TestComputeMetricsRejectsInvertedWindow(t *testing.T) {
	svc := NewService(repository.NewInMemoryRepository())

	now := time.Now().UTC()
	_, err := svc.ComputeMetrics(context.Background(), &models.MetricsWindowRequest{From: now, To: now})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.ComputeMetrics(context.Background(), &models.MetricsWindowRequest{From: now, To: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDashboardStats(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo)
	now := time.Now().UTC()

	insertAlert(t, repo, now.Add(-time.Hour), func(a *models.Alert) {
		a.Severity = models.SeverityCritical
	})
	insertAlert(t, repo, now.Add(-2*time.Hour), func(a *models.Alert) {
		a.Status = models.AlertStatusEscalated
	})
	insertAlert(t, repo, now.Add(-3*time.Hour), func(a *models.Alert) {
		a.Status = models.AlertStatusClosed
	})

	insertCase(t, repo, now.Add(-time.Hour), nil)
	insertCase(t, repo, now.Add(-time.Hour), func(c *models.Case) {
		c.Status = models.CaseStatusClosed
	})

	insertExecution(t, repo, now, models.ExecutionStatusRunning, "system")
	insertExecution(t, repo, now, models.ExecutionStatusRunning, "system")
	insertExecution(t, repo, now, models.ExecutionStatusPending, "system")
	insertExecution(t, repo, now, models.ExecutionStatusCompleted, "system")

	require.NoError(t, repo.CreatePlaybook(context.Background(), &models.Playbook{
		ID: newID(t), Name: "active", Status: models.PlaybookStatusActive,
	}))
	require.NoError(t, repo.CreatePlaybook(context.Background(), &models.Playbook{
		ID: newID(t), Name: "draft", Status: models.PlaybookStatusDraft,
	}))

	stats, err := svc.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.OpenAlerts)
	assert.Equal(t, 1, stats.OpenCases)
	assert.Equal(t, 2, stats.RunningExecutions)
	assert.Equal(t, 1, stats.PendingApprovals)
	assert.Equal(t, 1, stats.ActivePlaybooks)
	assert.Equal(t, 3, stats.AlertsBySeverity[models.SeverityMedium]+stats.AlertsBySeverity[models.SeverityCritical])
	assert.False(t, stats.GeneratedAt.IsZero())
}

func TestCreateHandover(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo)

	h, err := svc.CreateHandover(context.Background(), &models.CreateHandoverRequest{
		Summary:      "quiet shift, one escalation outstanding",
		Notes:        "waiting on network team for pcap",
		OpenAlertIDs: []string{"a-1", "a-2"},
		OpenCaseIDs:  []string{"c-1"},
	}, "default", "alice@soc")
	require.NoError(t, err)

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "alice@soc", h.OutgoingAnalyst)
	assert.Equal(t, []string{"a-1", "a-2"}, h.OpenAlertIDs)
	assert.Equal(t, []string{"c-1"}, h.OpenCaseIDs)
	assert.Nil(t, h.IncomingAnalyst)
	assert.Nil(t, h.AcknowledgedAt)

	got, err := svc.GetHandover(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.Summary, got.Summary)
}

func TestCreateHandoverRequiresSummary(t *testing.T) {
	svc := NewService(repository.NewInMemoryRepository())

	_, err := svc.CreateHandover(context.Background(), &models.CreateHandoverRequest{}, "default", "alice@soc")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestCreateHandoverPrePopulates(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo)
	now := time.Now().UTC()

	open := insertAlert(t, repo, now.Add(-time.Hour), nil)
	insertAlert(t, repo, now.Add(-time.Hour), func(a *models.Alert) {
		a.Status = models.AlertStatusResolved
	})
	openCase := insertCase(t, repo, now.Add(-time.Hour), nil)
	insertCase(t, repo, now.Add(-time.Hour), func(c *models.Case) {
		c.Status = models.CaseStatusClosed
	})

	h, err := svc.CreateHandover(context.Background(), &models.CreateHandoverRequest{
		Summary:     "end of shift",
		PrePopulate: true,
	}, "default", "alice@soc")
	require.NoError(t, err)

	assert.Equal(t, []string{open.ID}, h.OpenAlertIDs)
	assert.Equal(t, []string{openCase.ID}, h.OpenCaseIDs)
}

func TestAcknowledgeHandover(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo)

	h, err := svc.CreateHandover(context.Background(), &models.CreateHandoverRequest{
		Summary: "end of shift",
	}, "default", "alice@soc")
	require.NoError(t, err)

	acked, err := svc.AcknowledgeHandover(context.Background(), h.ID, "bob@soc")
	require.NoError(t, err)
	require.NotNil(t, acked.IncomingAnalyst)
	assert.Equal(t, "bob@soc", *acked.IncomingAnalyst)
	require.NotNil(t, acked.AcknowledgedAt)

	_, err = svc.AcknowledgeHandover(context.Background(), h.ID, "carol@soc")
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = svc.AcknowledgeHandover(context.Background(), "missing", "bob@soc")
	assert.ErrorIs(t, err, repository.ErrHandoverNotFound)
}
