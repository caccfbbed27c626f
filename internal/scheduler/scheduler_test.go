package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
)

// stubRunner scripts the outcome per action type. A nil error means success.
type stubRunner struct {
	mu       sync.Mutex
	outcomes map[models.ActionType]error
	block    chan struct{} // when set, Run blocks until closed or ctx done
	ran      []models.ActionType
}

func (r *stubRunner) Run(ctx context.Context, action models.Action, ex *models.PlaybookExecution) (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r.mu.Lock()
	r.ran = append(r.ran, action.Type)
	r.mu.Unlock()
	if err, ok := r.outcomes[action.Type]; ok && err != nil {
		return "", err
	}
	return "ok", nil
}

func (r *stubRunner) ranActions() []models.ActionType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ActionType(nil), r.ran...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedPlaybook(t *testing.T, repo repository.Repository, mutate func(*models.Playbook)) *models.Playbook {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)

	now := time.Now().UTC()
	p := &models.Playbook{
		ID:          id.String(),
		Name:        "test playbook",
		Status:      models.PlaybookStatusActive,
		Version:     1,
		TriggerType: models.TriggerManual,
		Actions: []models.Action{
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
		},
		IsEnabled:         true,
		MaxConcurrentRuns: 1,
		TimeoutSeconds:    30,
		TenantID:          "default",
		CreatedBy:         "tester",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, repo.CreatePlaybook(context.Background(), p))
	return p
}

func requestFor(p *models.Playbook) *models.ExecutionRequest {
	return &models.ExecutionRequest{
		PlaybookID:    p.ID,
		TriggerReason: "manual invocation",
		RequestedBy:   "tester",
		TenantID:      "default",
	}
}

func TestRequestRunsAllActionsToCompletion(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.Actions = []models.Action{
			{Type: models.ActionEnrich, Enrich: &models.EnrichParams{Provider: "geoip"}},
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
		}
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, ex.Status)
	require.NotNil(t, ex.StartedAt)

	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, done.Status)
	require.Len(t, done.ActionResults, 2)
	assert.Equal(t, models.ActionOutcomeSuccess, done.ActionResults[0].Outcome)
	assert.Equal(t, models.ActionOutcomeSuccess, done.ActionResults[1].Outcome)
	require.NotNil(t, done.CompletedAt)

	updated, err := repo.GetPlaybook(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.TotalRuns)
	assert.Equal(t, int64(1), updated.SuccessfulRuns)
}

func TestNonFatalFailureYieldsPartial(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{outcomes: map[models.ActionType]error{
		models.ActionBlock: errors.New("firewall unreachable"),
	}}
	sched := New(repo, runner, nil, testLogger())

	// notify succeeds, then the trailing block fails with nothing left to
	// skip: one success and one failure is a partial outcome.
	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.Actions = []models.Action{
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
			{Type: models.ActionBlock, Block: &models.BlockParams{Indicator: "1.2.3.4", Target: "firewall"}},
		}
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPartial, done.Status)
	require.Len(t, done.ActionResults, 2)
	assert.Equal(t, models.ActionOutcomeSuccess, done.ActionResults[0].Outcome)
	assert.Equal(t, models.ActionOutcomeFailure, done.ActionResults[1].Outcome)
	assert.Equal(t, "firewall unreachable", done.ActionResults[1].Detail)

	updated, err := repo.GetPlaybook(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.FailedRuns)
}

func TestFatalFailureSkipsRemainingActions(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{outcomes: map[models.ActionType]error{
		models.ActionIsolate: errors.New("edr agent offline"),
	}}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.Actions = []models.Action{
			{Type: models.ActionIsolate, Isolate: &models.IsolateParams{HostID: "h-1"}},
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
			{Type: models.ActionCreateTicket, CreateTicket: &models.CreateTicketParams{System: "jira"}},
		}
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, done.Status)
	require.Len(t, done.ActionResults, 3)
	assert.Equal(t, models.ActionOutcomeFailure, done.ActionResults[0].Outcome)
	assert.Equal(t, models.ActionOutcomeSkipped, done.ActionResults[1].Outcome)
	assert.Equal(t, models.ActionOutcomeSkipped, done.ActionResults[2].Outcome)
	assert.Contains(t, done.ErrorMessage, "isolate")
	assert.Equal(t, []models.ActionType{models.ActionIsolate}, runner.ranActions())
}

func TestNonFatalFailureContinuesToNextAction(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{outcomes: map[models.ActionType]error{
		models.ActionEnrich: errors.New("provider timeout"),
	}}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.Actions = []models.Action{
			{Type: models.ActionEnrich, Enrich: &models.EnrichParams{Provider: "threat-intel"}},
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
		}
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, done.Status)
	require.Len(t, done.ActionResults, 2)
	assert.Equal(t, models.ActionOutcomeFailure, done.ActionResults[0].Outcome)
	assert.Equal(t, models.ActionOutcomeSuccess, done.ActionResults[1].Outcome)
	assert.Equal(t, []models.ActionType{models.ActionEnrich, models.ActionNotify}, runner.ranActions())
}

func TestConcurrencyLimitRefusesSecondRequest(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	gate := make(chan struct{})
	runner := &stubRunner{block: gate}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.MaxConcurrentRuns = 1
	})

	first, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, first.Status)

	_, err = sched.Request(context.Background(), requestFor(p))
	require.ErrorIs(t, err, ErrConcurrencyLimitExceeded)

	// The refused request is recorded, not dropped.
	list, err := sched.ListExecutions(context.Background(), &models.ListExecutionsRequest{
		PlaybookID: p.ID,
		Status:     models.ExecutionStatusCancelled,
	})
	require.NoError(t, err)
	require.Len(t, list.Executions, 1)
	refused := list.Executions[0]
	assert.Nil(t, refused.StartedAt)
	require.NotNil(t, refused.CompletedAt)
	assert.Contains(t, refused.ErrorMessage, "admission refused")

	close(gate)
	sched.Wait()

	done, err := sched.GetExecution(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, done.Status)
}

func TestConcurrentAdmissionNeverExceedsLimit(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	gate := make(chan struct{})
	runner := &stubRunner{block: gate}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.MaxConcurrentRuns = 3
	})

	const requests = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		refused  int
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sched.Request(context.Background(), requestFor(p))
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrConcurrencyLimitExceeded) {
				refused++
			} else if err == nil {
				admitted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, admitted)
	assert.Equal(t, requests-3, refused)

	running, err := repo.CountExecutionsInStatus(context.Background(), p.ID, models.ExecutionStatusRunning)
	require.NoError(t, err)
	assert.Equal(t, 3, running)

	close(gate)
	sched.Wait()
}

func TestApprovalGateHoldsExecutionPending(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.RequireApproval = true
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, ex.Status)
	assert.Nil(t, ex.StartedAt)
	assert.Empty(t, runner.ranActions())

	approved, err := sched.Approve(context.Background(), ex.ID, "senior-analyst")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, approved.Status)
	require.NotNil(t, approved.StartedAt)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "senior-analyst", *approved.ApprovedBy)

	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, done.Status)

	// A second approval attempt hits a non-pending execution.
	_, err = sched.Approve(context.Background(), ex.ID, "senior-analyst")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestApproveRefusedAtConcurrencyLimit(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	gate := make(chan struct{})
	runner := &stubRunner{block: gate}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.RequireApproval = true
		p.MaxConcurrentRuns = 1
	})

	first, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	second, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)

	_, err = sched.Approve(context.Background(), first.ID, "senior-analyst")
	require.NoError(t, err)

	// The first approval occupies the only slot, so the second one is
	// refused and the execution stays pending for a later retry.
	_, err = sched.Approve(context.Background(), second.ID, "senior-analyst")
	require.ErrorIs(t, err, ErrConcurrencyLimitExceeded)

	held, err := sched.GetExecution(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, held.Status)
	assert.Nil(t, held.StartedAt)

	close(gate)
	sched.Wait()

	approved, err := sched.Approve(context.Background(), second.ID, "senior-analyst")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, approved.Status)

	sched.Wait()

	done, err := sched.GetExecution(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, done.Status)
}

func TestRejectTerminatesWithoutRunning(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.RequireApproval = true
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)

	rejected, err := sched.Reject(context.Background(), ex.ID, "senior-analyst", "insufficient evidence")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, rejected.Status)
	assert.Equal(t, "insufficient evidence", rejected.RejectionReason)
	assert.Nil(t, rejected.StartedAt)
	require.NotNil(t, rejected.CompletedAt)
	assert.Empty(t, runner.ranActions())

	// Rejections do not touch playbook run counters.
	updated, err := repo.GetPlaybook(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.TotalRuns)
}

func TestCancelPendingExecution(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	sched := New(repo, &stubRunner{}, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.RequireApproval = true
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)

	cancelled, err := sched.Cancel(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, cancelled.Status)

	_, err = sched.Cancel(context.Background(), ex.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelRunningExecutionSkipsRemainingActions(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	gate := make(chan struct{})
	runner := &stubRunner{block: gate}
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.Actions = []models.Action{
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
			{Type: models.ActionCreateTicket, CreateTicket: &models.CreateTicketParams{System: "jira"}},
		}
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)

	// Cancel while the first action is still in flight; the flag is
	// honored at the next action boundary.
	_, err = sched.Cancel(context.Background(), ex.ID)
	require.NoError(t, err)

	close(gate)
	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, done.Status)
	require.NotEmpty(t, done.ActionResults)
	last := done.ActionResults[len(done.ActionResults)-1]
	assert.Equal(t, models.ActionOutcomeSkipped, last.Outcome)
}

func TestTimeoutFailsExecutionAndSkipsRest(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	runner := &stubRunner{block: make(chan struct{})} // never closed: blocks until ctx deadline
	sched := New(repo, runner, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.TimeoutSeconds = 1
		p.Actions = []models.Action{
			{Type: models.ActionRunScript, RunScript: &models.RunScriptParams{Script: "slow.sh"}},
			{Type: models.ActionNotify, Notify: &models.NotifyParams{Channel: "log"}},
		}
	})

	ex, err := sched.Request(context.Background(), requestFor(p))
	require.NoError(t, err)
	sched.Wait()

	done, err := sched.GetExecution(context.Background(), ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, done.Status)
	assert.Contains(t, done.ErrorMessage, "timed out")
	require.Len(t, done.ActionResults, 2)
	assert.Equal(t, models.ActionOutcomeFailure, done.ActionResults[0].Outcome)
	assert.Equal(t, models.ActionOutcomeSkipped, done.ActionResults[1].Outcome)
}

func TestRequestRejectsDisabledPlaybook(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	sched := New(repo, &stubRunner{}, nil, testLogger())

	p := seedPlaybook(t, repo, func(p *models.Playbook) {
		p.IsEnabled = false
	})

	_, err := sched.Request(context.Background(), requestFor(p))
	assert.ErrorIs(t, err, ErrPlaybookNotRunnable)
}

func TestFinalStatus(t *testing.T) {
	res := func(outcomes ...string) []models.ActionResult {
		results := make([]models.ActionResult, len(outcomes))
		for i, o := range outcomes {
			results[i] = models.ActionResult{Index: i, Outcome: o}
		}
		return results
	}

	tests := []struct {
		name    string
		results []models.ActionResult
		want    string
	}{
		{"all success", res("success", "success"), models.ExecutionStatusCompleted},
		{"skips only", res("success", "skipped"), models.ExecutionStatusCompleted},
		{"all failed", res("failure", "failure"), models.ExecutionStatusFailed},
		{"first failed", res("failure", "success"), models.ExecutionStatusFailed},
		{"trailing failure", res("success", "failure"), models.ExecutionStatusPartial},
		{"failure between successes", res("success", "failure", "success"), models.ExecutionStatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finalStatus(tt.results))
		})
	}
}

func TestRunnerUnsupportedActionType(t *testing.T) {
	r := NewRunner(nil, nil, nil, testLogger())
	_, err := r.Run(context.Background(), models.Action{Type: models.ActionUnknown}, &models.PlaybookExecution{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%q", models.ActionUnknown))
}
