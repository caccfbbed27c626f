package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// setupTestDatabase starts a PostgreSQL testcontainer, applies migrations and
// returns a connected repository.
func setupTestDatabase(t *testing.T) *PostgresRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed repository tests in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("soc_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, runMigrations(connStr))

	repo, err := NewPostgresRepository(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "0001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	return nil
}

func testAlert(t *testing.T) *models.Alert {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Alert{
		ID:               id.String(),
		AlertID:          "ALERT-20260830-" + id.String()[:4],
		Title:            "Suspicious PowerShell execution",
		Severity:         models.SeverityHigh,
		Status:           models.AlertStatusNew,
		Source:           "edr",
		RuleName:         "proc-encoded-ps",
		MitreTactics:     []string{"TA0002"},
		MitreTechniques:  []string{"T1059.001"},
		AffectedEntities: []string{"host:ws-042", "user:jdoe"},
		Enrichment:       map[string]interface{}{"verdict": "suspicious"},
		Tags:             []string{"endpoint"},
		RawEvent:         map[string]interface{}{"cmdline": "powershell -enc ..."},
		DetectedAt:       now,
		FirstSeen:        now,
		LastSeen:         now,
		TenantID:         "default",
		CreatedBy:        "analyst@soc",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func testCase(t *testing.T) *models.Case {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Case{
		ID:         id.String(),
		CaseNumber: "CASE-2026-" + id.String()[:4],
		Title:      "Endpoint compromise investigation",
		Status:     models.CaseStatusOpen,
		Priority:   models.SeverityHigh,
		OpenedAt:   now,
		TenantID:   "default",
		CreatedBy:  "analyst@soc",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testPlaybook(t *testing.T) *models.Playbook {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Playbook{
		ID:          id.String(),
		Name:        "containment",
		Status:      models.PlaybookStatusActive,
		Version:     1,
		TriggerType: models.TriggerAlertSeverity,
		Actions: []models.Action{
			{Type: models.ActionIsolate, Isolate: &models.IsolateParams{HostID: "ws-042"}},
		},
		IsEnabled:         true,
		MaxConcurrentRuns: 1,
		TimeoutSeconds:    300,
		TenantID:          "default",
		CreatedBy:         "analyst@soc",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func testExecution(t *testing.T, playbookID string) *models.PlaybookExecution {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return &models.PlaybookExecution{
		ID:         id.String(),
		PlaybookID: playbookID,
		Status:     models.ExecutionStatusRunning,
		ExecutedBy: "system",
		TenantID:   "default",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresAlertRoundTrip(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	a := testAlert(t)
	require.NoError(t, repo.CreateAlert(ctx, a))

	got, err := repo.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.AlertID, got.AlertID)
	assert.Equal(t, a.Severity, got.Severity)
	assert.Equal(t, a.MitreTechniques, got.MitreTechniques)
	assert.Equal(t, a.AffectedEntities, got.AffectedEntities)
	assert.Equal(t, "suspicious", got.Enrichment["verdict"])
	assert.True(t, got.DetectedAt.Equal(a.DetectedAt))

	_, err = repo.GetAlert(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrAlertNotFound)

	assignee := "jdoe@soc"
	got.Status = models.AlertStatusAssigned
	got.AssignedTo = &assignee
	require.NoError(t, repo.SaveAlert(ctx, got))

	updated, err := repo.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAssigned, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, assignee, *updated.AssignedTo)
}

func TestPostgresListAlertsFilters(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	severities := []string{models.SeverityCritical, models.SeverityHigh, models.SeverityHigh}
	for _, sev := range severities {
		a := testAlert(t)
		a.Severity = sev
		require.NoError(t, repo.CreateAlert(ctx, a))
	}

	alerts, total, err := repo.ListAlerts(ctx, &models.ListAlertsRequest{
		Page: 1, Limit: 10, Severity: models.SeverityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, alerts, 2)

	// Pagination counts the whole filtered set, not the page.
	alerts, total, err = repo.ListAlerts(ctx, &models.ListAlertsRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, alerts, 1)
}

func TestPostgresAlertComments(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	a := testAlert(t)
	require.NoError(t, repo.CreateAlert(ctx, a))

	for i, content := range []string{"first look", "confirmed malicious"} {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		require.NoError(t, repo.AddAlertComment(ctx, &models.AlertComment{
			ID:        id.String(),
			AlertID:   a.ID,
			Author:    "analyst@soc",
			Content:   content,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	comments, err := repo.ListAlertComments(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first look", comments[0].Content)
	assert.Equal(t, "confirmed malicious", comments[1].Content)
}

func TestPostgresCaseLinking(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	c := testCase(t)
	require.NoError(t, repo.CreateCase(ctx, c))
	a := testAlert(t)
	require.NoError(t, repo.CreateAlert(ctx, a))

	linked, err := repo.LinkAlertToCase(ctx, c.ID, a.ID, "analyst@soc")
	require.NoError(t, err)
	assert.True(t, linked)

	// Relinking the same alert is a no-op.
	linked, err = repo.LinkAlertToCase(ctx, c.ID, a.ID, "analyst@soc")
	require.NoError(t, err)
	assert.False(t, linked)

	links, err := repo.ListCaseAlerts(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, a.ID, links[0].AlertID)
	assert.Equal(t, "analyst@soc", links[0].AddedBy)

	got, err := repo.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AlertCount)
}

func TestPostgresCaseTimelineOrdering(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	c := testCase(t)
	require.NoError(t, repo.CreateCase(ctx, c))

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, desc := range []string{"case opened", "alert linked", "escalated to tier-2"} {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		require.NoError(t, repo.AppendTimeline(ctx, &models.CaseTimelineEntry{
			ID:          id.String(),
			CaseID:      c.ID,
			EntryType:   "note",
			Description: desc,
			Author:      "analyst@soc",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := repo.ListTimeline(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "case opened", entries[0].Description)
	assert.Equal(t, "escalated to tier-2", entries[2].Description)
}

func TestPostgresExecutionAdmission(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	p := testPlaybook(t)
	require.NoError(t, repo.CreatePlaybook(ctx, p))

	first := testExecution(t, p.ID)
	admitted, err := repo.InsertExecutionAdmitted(ctx, first, 1)
	require.NoError(t, err)
	assert.True(t, admitted)

	second := testExecution(t, p.ID)
	admitted, err = repo.InsertExecutionAdmitted(ctx, second, 1)
	require.NoError(t, err)
	assert.False(t, admitted)

	running, err := repo.CountExecutionsInStatus(ctx, p.ID, models.ExecutionStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, 1, running)

	// A finished execution frees its admission slot.
	now := time.Now().UTC()
	first.Status = models.ExecutionStatusCompleted
	first.CompletedAt = &now
	require.NoError(t, repo.SaveExecution(ctx, first))

	third := testExecution(t, p.ID)
	admitted, err = repo.InsertExecutionAdmitted(ctx, third, 1)
	require.NoError(t, err)
	assert.True(t, admitted)

	_, err = repo.InsertExecutionAdmitted(ctx, testExecution(t, uuid.NewString()), 1)
	assert.ErrorIs(t, err, ErrPlaybookNotFound)
}

func TestPostgresPromoteExecutionRunning(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	p := testPlaybook(t)
	require.NoError(t, repo.CreatePlaybook(ctx, p))

	ex := testExecution(t, p.ID)
	ex.Status = models.ExecutionStatusPending
	require.NoError(t, repo.CreateExecution(ctx, ex))

	promoted, ok, err := repo.PromoteExecutionRunning(ctx, ex.ID, "senior-analyst", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStatusRunning, promoted.Status)
	require.NotNil(t, promoted.StartedAt)
	require.NotNil(t, promoted.ApprovedBy)
	assert.Equal(t, "senior-analyst", *promoted.ApprovedBy)

	// Already decided: a repeat promotion is refused.
	_, _, err = repo.PromoteExecutionRunning(ctx, ex.ID, "senior-analyst", 1)
	assert.ErrorIs(t, err, ErrExecutionNotPending)

	// The promoted run occupies the only slot.
	held := testExecution(t, p.ID)
	held.Status = models.ExecutionStatusPending
	require.NoError(t, repo.CreateExecution(ctx, held))

	_, ok, err = repo.PromoteExecutionRunning(ctx, held.ID, "senior-analyst", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetExecution(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, got.Status)

	_, _, err = repo.PromoteExecutionRunning(ctx, uuid.NewString(), "senior-analyst", 1)
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestPostgresTerminateExecutionIfPending(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	p := testPlaybook(t)
	require.NoError(t, repo.CreatePlaybook(ctx, p))

	ex := testExecution(t, p.ID)
	ex.Status = models.ExecutionStatusPending
	require.NoError(t, repo.CreateExecution(ctx, ex))

	now := time.Now().UTC().Truncate(time.Microsecond)
	ex.Status = models.ExecutionStatusFailed
	ex.RejectionReason = "insufficient evidence"
	ex.CompletedAt = &now

	terminated, err := repo.TerminateExecutionIfPending(ctx, ex)
	require.NoError(t, err)
	require.True(t, terminated)

	got, err := repo.GetExecution(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, got.Status)
	assert.Equal(t, "insufficient evidence", got.RejectionReason)
	require.NotNil(t, got.CompletedAt)

	// No longer pending: the second decision loses the race cleanly.
	terminated, err = repo.TerminateExecutionIfPending(ctx, ex)
	require.NoError(t, err)
	assert.False(t, terminated)

	missing := testExecution(t, p.ID)
	_, err = repo.TerminateExecutionIfPending(ctx, missing)
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestPostgresExecutionActionResults(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	p := testPlaybook(t)
	require.NoError(t, repo.CreatePlaybook(ctx, p))

	ex := testExecution(t, p.ID)
	require.NoError(t, repo.CreateExecution(ctx, ex))

	ex.Status = models.ExecutionStatusPartial
	ex.ActionResults = []models.ActionResult{
		{Index: 0, ActionType: models.ActionIsolate, Outcome: models.ActionOutcomeSuccess, DurationMs: 420},
		{Index: 1, ActionType: models.ActionNotify, Outcome: models.ActionOutcomeFailure, Detail: "webhook 503"},
	}
	require.NoError(t, repo.SaveExecution(ctx, ex))

	got, err := repo.GetExecution(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPartial, got.Status)
	require.Len(t, got.ActionResults, 2)
	assert.Equal(t, models.ActionIsolate, got.ActionResults[0].ActionType)
	assert.Equal(t, "webhook 503", got.ActionResults[1].Detail)
}

func TestPostgresRecordExecutionOutcome(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	p := testPlaybook(t)
	require.NoError(t, repo.CreatePlaybook(ctx, p))

	require.NoError(t, repo.RecordExecutionOutcome(ctx, p.ID, true, 10*time.Second))
	require.NoError(t, repo.RecordExecutionOutcome(ctx, p.ID, false, 20*time.Second))

	got, err := repo.GetPlaybook(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalRuns)
	assert.Equal(t, int64(1), got.SuccessfulRuns)
	assert.Equal(t, int64(1), got.FailedRuns)
	assert.InDelta(t, 15.0, got.AvgExecutionTime, 0.001)

	err = repo.RecordExecutionOutcome(ctx, uuid.NewString(), true, time.Second)
	assert.ErrorIs(t, err, ErrPlaybookNotFound)
}
