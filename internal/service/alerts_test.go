package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantor-systems/vantor-soc/internal/idgen"
	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
)

func newAlertService() (*AlertService, *repository.InMemoryRepository) {
	repo := repository.NewInMemoryRepository()
	return NewAlertService(repo, idgen.NewGenerator(idgen.NewMemorySequencer())), repo
}

func createTestAlert(t *testing.T, svc *AlertService) *models.Alert {
	t.Helper()
	a, err := svc.CreateAlert(context.Background(), &models.CreateAlertRequest{
		Title:    "Suspicious login burst",
		Severity: models.SeverityHigh,
		Source:   "siem",
	}, "default", "analyst-1")
	require.NoError(t, err)
	return a
}

func TestCreateAlert(t *testing.T) {
	tests := []struct {
		name        string
		request     *models.CreateAlertRequest
		expectError error
	}{
		{
			name: "valid alert",
			request: &models.CreateAlertRequest{
				Title:    "Malware detected",
				Severity: models.SeverityCritical,
				Source:   "edr",
			},
		},
		{
			name: "missing title",
			request: &models.CreateAlertRequest{
				Severity: models.SeverityLow,
				Source:   "siem",
			},
			expectError: ErrValidation,
		},
		{
			name: "invalid severity",
			request: &models.CreateAlertRequest{
				Title:    "Something",
				Severity: "catastrophic",
				Source:   "siem",
			},
			expectError: ErrValidation,
		},
		{
			name: "missing source",
			request: &models.CreateAlertRequest{
				Title:    "Something",
				Severity: models.SeverityLow,
			},
			expectError: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAlertService()
			a, err := svc.CreateAlert(context.Background(), tt.request, "default", "analyst-1")
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.AlertStatusNew, a.Status)
			assert.NotEmpty(t, a.ID)
			assert.Regexp(t, `^ALERT-\d{8}-\d{4}$`, a.AlertID)
			assert.Equal(t, "analyst-1", a.CreatedBy)
			assert.Equal(t, "default", a.TenantID)
			assert.False(t, a.DetectedAt.IsZero())
			assert.Equal(t, a.DetectedAt, a.FirstSeen)
		})
	}
}

func TestCreateAlertSequentialIDs(t *testing.T) {
	svc, _ := newAlertService()
	first := createTestAlert(t, svc)
	second := createTestAlert(t, svc)
	assert.NotEqual(t, first.AlertID, second.AlertID)
	assert.Less(t, first.AlertID, second.AlertID)
}

func TestBulkCreateAlerts(t *testing.T) {
	svc, _ := newAlertService()

	created, err := svc.BulkCreateAlerts(context.Background(), &models.BulkCreateAlertsRequest{
		Alerts: []models.CreateAlertRequest{
			{Title: "a", Severity: models.SeverityLow, Source: "siem"},
			{Title: "b", Severity: models.SeverityHigh, Source: "edr"},
		},
	}, "default", "analyst-1")
	require.NoError(t, err)
	assert.Len(t, created, 2)

	// A failing item stops the fold but keeps earlier creations.
	created, err = svc.BulkCreateAlerts(context.Background(), &models.BulkCreateAlertsRequest{
		Alerts: []models.CreateAlertRequest{
			{Title: "c", Severity: models.SeverityLow, Source: "siem"},
			{Title: "", Severity: models.SeverityLow, Source: "siem"},
		},
	}, "default", "analyst-1")
	require.ErrorIs(t, err, ErrValidation)
	assert.Len(t, created, 1)
}

func TestAlertStateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("assign then acknowledge then resolve", func(t *testing.T) {
		svc, _ := newAlertService()
		a := createTestAlert(t, svc)

		a, err := svc.AssignAlert(ctx, a.ID, &models.AssignAlertRequest{Assignee: "analyst-2"})
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusAssigned, a.Status)
		require.NotNil(t, a.AssignedTo)
		assert.Equal(t, "analyst-2", *a.AssignedTo)
		require.NotNil(t, a.AssignedAt)

		a, err = svc.AcknowledgeAlert(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, a.AcknowledgedAt)

		a, err = svc.ResolveAlert(ctx, a.ID, &models.ResolveAlertRequest{Notes: "contained"})
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusResolved, a.Status)
		require.NotNil(t, a.ResolvedAt)
		assert.Equal(t, "contained", a.ResolutionNotes)
	})

	t.Run("new alert cannot resolve directly", func(t *testing.T) {
		svc, _ := newAlertService()
		a := createTestAlert(t, svc)

		_, err := svc.ResolveAlert(ctx, a.ID, &models.ResolveAlertRequest{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("acknowledge advances new to in_progress", func(t *testing.T) {
		svc, _ := newAlertService()
		a := createTestAlert(t, svc)

		a, err := svc.AcknowledgeAlert(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusInProgress, a.Status)
	})

	t.Run("acknowledge is idempotent", func(t *testing.T) {
		svc, _ := newAlertService()
		a := createTestAlert(t, svc)

		first, err := svc.AcknowledgeAlert(ctx, a.ID)
		require.NoError(t, err)
		second, err := svc.AcknowledgeAlert(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, first.AcknowledgedAt, second.AcknowledgedAt)
	})

	t.Run("terminal alert rejects further transitions", func(t *testing.T) {
		svc, _ := newAlertService()
		a := createTestAlert(t, svc)

		_, err := svc.AssignAlert(ctx, a.ID, &models.AssignAlertRequest{Assignee: "analyst-2"})
		require.NoError(t, err)
		_, err = svc.ResolveAlert(ctx, a.ID, &models.ResolveAlertRequest{})
		require.NoError(t, err)

		_, err = svc.AssignAlert(ctx, a.ID, &models.AssignAlertRequest{Assignee: "analyst-3"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = svc.AcknowledgeAlert(ctx, a.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = svc.ResolveAlert(ctx, a.ID, &models.ResolveAlertRequest{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("false positive requires a reason", func(t *testing.T) {
		svc, _ := newAlertService()
		a := createTestAlert(t, svc)
		_, err := svc.AssignAlert(ctx, a.ID, &models.AssignAlertRequest{Assignee: "analyst-2"})
		require.NoError(t, err)

		_, err = svc.ResolveAlert(ctx, a.ID, &models.ResolveAlertRequest{IsFalsePositive: true})
		assert.ErrorIs(t, err, ErrValidation)

		resolved, err := svc.ResolveAlert(ctx, a.ID, &models.ResolveAlertRequest{
			IsFalsePositive:     true,
			FalsePositiveReason: "known scanner",
		})
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusFalsePositive, resolved.Status)
		assert.Equal(t, "known scanner", resolved.FalsePositiveReason)
	})
}

func TestAcknowledgeBeforeDetectionRejected(t *testing.T) {
	svc, _ := newAlertService()
	future := time.Now().UTC().Add(time.Hour)
	a, err := svc.CreateAlert(context.Background(), &models.CreateAlertRequest{
		Title:      "Back-dated alert",
		Severity:   models.SeverityLow,
		Source:     "siem",
		DetectedAt: &future,
	}, "default", "analyst-1")
	require.NoError(t, err)

	_, err = svc.AcknowledgeAlert(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateAlertPartialFields(t *testing.T) {
	svc, _ := newAlertService()
	a := createTestAlert(t, svc)

	newSeverity := models.SeverityCritical
	updated, err := svc.UpdateAlert(context.Background(), a.ID, &models.UpdateAlertRequest{
		Severity:   &newSeverity,
		Enrichment: map[string]interface{}{"geoip": "RU"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, updated.Severity)
	assert.Equal(t, "RU", updated.Enrichment["geoip"])
	assert.Equal(t, a.Title, updated.Title)
}

func TestAlertComments(t *testing.T) {
	svc, _ := newAlertService()
	a := createTestAlert(t, svc)

	_, err := svc.AddComment(context.Background(), a.ID, &models.AddCommentRequest{}, "analyst-1")
	assert.ErrorIs(t, err, ErrValidation)

	c, err := svc.AddComment(context.Background(), a.ID, &models.AddCommentRequest{
		Content: "checked with the user, legitimate travel",
	}, "analyst-1")
	require.NoError(t, err)
	assert.Equal(t, "analyst-1", c.Author)

	comments, err := svc.ListComments(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	_, err = svc.ListComments(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}
