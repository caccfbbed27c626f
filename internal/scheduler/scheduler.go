// Package scheduler admits, approves, and runs playbook executions. It is
// the only concurrent component of the SOC core: each admitted execution
// runs on its own goroutine, bounded per playbook by max_concurrent_runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vantor-systems/vantor-soc/internal/events"
	"github.com/vantor-systems/vantor-soc/internal/metrics"
	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
)

var (
	// ErrConcurrencyLimitExceeded is returned when a playbook already has its
	// maximum number of running executions.
	ErrConcurrencyLimitExceeded = errors.New("concurrency limit exceeded")

	// ErrNotPending is returned on approve/reject of an execution that is not
	// awaiting approval.
	ErrNotPending = errors.New("execution is not awaiting approval")

	// ErrNotCancellable is returned on cancel of an already-terminal execution.
	ErrNotCancellable = errors.New("execution is not cancellable")

	// ErrPlaybookNotRunnable is returned when the target playbook is disabled
	// or not active.
	ErrPlaybookNotRunnable = errors.New("playbook is not runnable")
)

// execHandle tracks an in-flight execution goroutine. Cancellation is
// cooperative: the run loop checks the flag at each action boundary.
type execHandle struct {
	cancelled atomic.Bool
}

// Scheduler turns execution requests into playbook executions and drives
// them to a terminal status.
type Scheduler struct {
	repo   repository.Repository
	runner ActionRunner
	events *events.Publisher
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*execHandle
	wg       sync.WaitGroup
}

// New creates a new execution scheduler.
func New(repo repository.Repository, runner ActionRunner, publisher *events.Publisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		runner:   runner,
		events:   publisher,
		logger:   logger,
		inflight: make(map[string]*execHandle),
	}
}

// Request admits an execution request against the playbook's concurrency
// limit. An admitted request either starts running immediately or, if the
// playbook requires approval, is parked in pending until Approve or Reject.
// A refused request is recorded as a cancelled execution and returns
// ErrConcurrencyLimitExceeded.
func (s *Scheduler) Request(ctx context.Context, req *models.ExecutionRequest) (*models.PlaybookExecution, error) {
	p, err := s.repo.GetPlaybook(ctx, req.PlaybookID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PlaybookStatusActive || !p.IsEnabled {
		return nil, fmt.Errorf("%w: playbook %s is %s", ErrPlaybookNotRunnable, p.ID, p.Status)
	}

	execUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution id: %w", err)
	}

	now := time.Now().UTC()
	ex := &models.PlaybookExecution{
		ID:            execUUID.String(),
		PlaybookID:    p.ID,
		Status:        models.ExecutionStatusPending,
		TriggerReason: req.TriggerReason,
		AlertID:       req.AlertID,
		CaseID:        req.CaseID,
		ExecutedBy:    req.RequestedBy,
		TenantID:      req.TenantID,
		CreatedAt:     now,
	}
	if !p.RequireApproval {
		ex.Status = models.ExecutionStatusRunning
		ex.StartedAt = &now
	}

	admitted, err := s.repo.InsertExecutionAdmitted(ctx, ex, p.MaxConcurrentRuns)
	if err != nil {
		return nil, err
	}
	if !admitted {
		ex.Status = models.ExecutionStatusCancelled
		ex.StartedAt = nil
		ex.CompletedAt = &now
		ex.ErrorMessage = fmt.Sprintf("admission refused: %d executions already running", p.MaxConcurrentRuns)
		if cerr := s.repo.CreateExecution(ctx, ex); cerr != nil {
			return nil, cerr
		}
		metrics.ExecutionsRejectedAdmission.Inc()
		return nil, fmt.Errorf("playbook %s: %w", p.ID, ErrConcurrencyLimitExceeded)
	}

	if ex.Status == models.ExecutionStatusRunning {
		s.start(p, ex)
	}
	return ex, nil
}

// Approve resumes a pending execution: stamps started_at, transitions it to
// running, and starts the action run. The pending check, the concurrency
// re-check, and the transition happen in one repository operation so
// approvals cannot race admissions past max_concurrent_runs.
func (s *Scheduler) Approve(ctx context.Context, executionID, actor string) (*models.PlaybookExecution, error) {
	ex, err := s.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if ex.Status != models.ExecutionStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, ex.Status)
	}

	p, err := s.repo.GetPlaybook(ctx, ex.PlaybookID)
	if err != nil {
		return nil, err
	}

	promoted, ok, err := s.repo.PromoteExecutionRunning(ctx, executionID, actor, p.MaxConcurrentRuns)
	if err != nil {
		if errors.Is(err, repository.ErrExecutionNotPending) {
			return nil, fmt.Errorf("%w: decided concurrently", ErrNotPending)
		}
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("playbook %s: %w", p.ID, ErrConcurrencyLimitExceeded)
	}

	s.start(p, promoted)
	return promoted, nil
}

// Reject terminates a pending execution as failed with the supplied reason.
// started_at is never set for a rejected execution.
func (s *Scheduler) Reject(ctx context.Context, executionID, actor, reason string) (*models.PlaybookExecution, error) {
	ex, err := s.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if ex.Status != models.ExecutionStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, ex.Status)
	}

	now := time.Now().UTC()
	ex.Status = models.ExecutionStatusFailed
	ex.RejectionReason = reason
	ex.ApprovedBy = &actor
	ex.ApprovalDecided = &now
	ex.CompletedAt = &now
	ex.ErrorMessage = "approval rejected: " + reason

	terminated, err := s.repo.TerminateExecutionIfPending(ctx, ex)
	if err != nil {
		return nil, err
	}
	if !terminated {
		return nil, fmt.Errorf("%w: decided concurrently", ErrNotPending)
	}

	metrics.ExecutionsCompleted.WithLabelValues(ex.Status).Inc()
	s.events.ExecutionFinished(ctx, ex)
	return ex, nil
}

// Cancel stops a pending or running execution. A running execution is
// cancelled cooperatively at the next action boundary; actions are not
// preempted mid-step.
func (s *Scheduler) Cancel(ctx context.Context, executionID string) (*models.PlaybookExecution, error) {
	ex, err := s.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if ex.Status == models.ExecutionStatusPending {
		now := time.Now().UTC()
		ex.Status = models.ExecutionStatusCancelled
		ex.CompletedAt = &now
		ex.ErrorMessage = "cancelled before approval"
		terminated, err := s.repo.TerminateExecutionIfPending(ctx, ex)
		if err != nil {
			return nil, err
		}
		if terminated {
			metrics.ExecutionsCompleted.WithLabelValues(ex.Status).Inc()
			s.events.ExecutionFinished(ctx, ex)
			return ex, nil
		}
		// An approval won the race; re-read and treat the execution as
		// running.
		ex, err = s.repo.GetExecution(ctx, executionID)
		if err != nil {
			return nil, err
		}
	}

	switch ex.Status {
	case models.ExecutionStatusRunning:
		s.mu.Lock()
		h, ok := s.inflight[ex.ID]
		s.mu.Unlock()
		if ok {
			h.cancelled.Store(true)
			return ex, nil
		}
		// No goroutine in this process owns the execution (e.g. left over
		// from a previous run); mark it cancelled directly.
		now := time.Now().UTC()
		ex.Status = models.ExecutionStatusCancelled
		ex.CompletedAt = &now
		ex.ErrorMessage = "cancelled by operator"
		if err := s.repo.SaveExecution(ctx, ex); err != nil {
			return nil, err
		}
		metrics.ExecutionsCompleted.WithLabelValues(ex.Status).Inc()
		s.events.ExecutionFinished(ctx, ex)
		return ex, nil

	default:
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, ex.Status)
	}
}

// GetExecution retrieves an execution by ID.
func (s *Scheduler) GetExecution(ctx context.Context, id string) (*models.PlaybookExecution, error) {
	return s.repo.GetExecution(ctx, id)
}

// ListExecutions retrieves a paginated list of executions.
func (s *Scheduler) ListExecutions(ctx context.Context, req *models.ListExecutionsRequest) (*models.ListExecutionsResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 50
	}

	execs, total, err := s.repo.ListExecutions(ctx, req)
	if err != nil {
		return nil, err
	}

	totalPages := (total + req.Limit - 1) / req.Limit
	return &models.ListExecutionsResponse{
		Executions: execs,
		Pagination: models.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// Wait blocks until all in-flight executions finish. Used for graceful
// shutdown and in tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// start launches the run goroutine for an execution already persisted in
// running status.
func (s *Scheduler) start(p *models.Playbook, ex *models.PlaybookExecution) {
	h := &execHandle{}
	s.register(ex.ID, h)

	metrics.ExecutionsStarted.Inc()
	metrics.ExecutionsRunning.Inc()
	s.events.ExecutionStarted(context.Background(), ex)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer metrics.ExecutionsRunning.Dec()
		defer s.unregister(ex.ID)
		s.run(p, ex, h)
	}()
}

func (s *Scheduler) register(id string, h *execHandle) {
	s.mu.Lock()
	s.inflight[id] = h
	s.mu.Unlock()
}

func (s *Scheduler) unregister(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// run executes the playbook's actions in list order under the playbook
// deadline and persists the terminal state.
func (s *Scheduler) run(p *models.Playbook, ex *models.PlaybookExecution, h *execHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.TimeoutSeconds)*time.Second)
	defer cancel()

	results := make([]models.ActionResult, 0, len(p.Actions))
	timedOut := false
	wasCancelled := false

	for i, action := range p.Actions {
		if h.cancelled.Load() {
			wasCancelled = true
			results = skipRemaining(results, p.Actions, i, "execution cancelled")
			break
		}
		if ctx.Err() != nil {
			timedOut = true
			results = skipRemaining(results, p.Actions, i, "deadline exceeded")
			break
		}

		start := time.Now()
		detail, err := s.runner.Run(ctx, action, ex)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			if ctx.Err() != nil {
				// The in-flight action is considered failed on timeout.
				timedOut = true
				results = append(results, models.ActionResult{
					Index:      i,
					ActionType: action.Type,
					Outcome:    models.ActionOutcomeFailure,
					Detail:     "deadline exceeded",
					DurationMs: elapsed,
				})
				metrics.ActionResults.WithLabelValues(string(action.Type), models.ActionOutcomeFailure).Inc()
				results = skipRemaining(results, p.Actions, i+1, "deadline exceeded")
				break
			}

			results = append(results, models.ActionResult{
				Index:      i,
				ActionType: action.Type,
				Outcome:    models.ActionOutcomeFailure,
				Detail:     err.Error(),
				DurationMs: elapsed,
			})
			metrics.ActionResults.WithLabelValues(string(action.Type), models.ActionOutcomeFailure).Inc()

			if fatalActionFailure[action.Type] {
				results = skipRemaining(results, p.Actions, i+1,
					fmt.Sprintf("aborted after %s failure", action.Type))
				break
			}
			continue
		}

		results = append(results, models.ActionResult{
			Index:      i,
			ActionType: action.Type,
			Outcome:    models.ActionOutcomeSuccess,
			Detail:     detail,
			DurationMs: elapsed,
		})
		metrics.ActionResults.WithLabelValues(string(action.Type), models.ActionOutcomeSuccess).Inc()
	}

	now := time.Now().UTC()
	ex.ActionResults = results
	ex.CompletedAt = &now
	switch {
	case timedOut:
		ex.Status = models.ExecutionStatusFailed
		ex.ErrorMessage = fmt.Sprintf("execution timed out after %ds", p.TimeoutSeconds)
	case wasCancelled:
		ex.Status = models.ExecutionStatusCancelled
		ex.ErrorMessage = "cancelled by operator"
	default:
		ex.Status = finalStatus(results)
		if ex.Status == models.ExecutionStatusFailed {
			ex.ErrorMessage = firstFailureDetail(results)
		}
	}

	// The run context may already be dead; persistence gets its own.
	persistCtx, persistCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer persistCancel()

	if err := s.repo.SaveExecution(persistCtx, ex); err != nil {
		s.logger.Error("failed to persist execution result", "execution_id", ex.ID, "error", err)
		return
	}

	duration := now.Sub(*ex.StartedAt)
	if err := s.repo.RecordExecutionOutcome(persistCtx, p.ID, ex.Status == models.ExecutionStatusCompleted, duration); err != nil {
		s.logger.Error("failed to record execution outcome", "playbook_id", p.ID, "error", err)
	}

	metrics.ExecutionsCompleted.WithLabelValues(ex.Status).Inc()
	metrics.ExecutionDuration.Observe(duration.Seconds())
	s.events.ExecutionFinished(persistCtx, ex)

	s.logger.Info("execution finished",
		"execution_id", ex.ID, "playbook_id", p.ID, "status", ex.Status,
		"actions", len(results), "duration_ms", duration.Milliseconds())
}

// skipRemaining appends skipped results for actions from index i onward.
func skipRemaining(results []models.ActionResult, actions []models.Action, i int, detail string) []models.ActionResult {
	for ; i < len(actions); i++ {
		results = append(results, models.ActionResult{
			Index:      i,
			ActionType: actions[i].Type,
			Outcome:    models.ActionOutcomeSkipped,
			Detail:     detail,
		})
		metrics.ActionResults.WithLabelValues(string(actions[i].Type), models.ActionOutcomeSkipped).Inc()
	}
	return results
}

// finalStatus derives the execution status from the action outcomes:
// completed when every action succeeded, failed when the first action failed
// or nothing succeeded, partial otherwise.
func finalStatus(results []models.ActionResult) string {
	successes, failures := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case models.ActionOutcomeSuccess:
			successes++
		case models.ActionOutcomeFailure:
			failures++
		}
	}
	switch {
	case failures == 0:
		return models.ExecutionStatusCompleted
	case successes == 0:
		return models.ExecutionStatusFailed
	case results[0].Outcome == models.ActionOutcomeFailure:
		return models.ExecutionStatusFailed
	default:
		return models.ExecutionStatusPartial
	}
}

func firstFailureDetail(results []models.ActionResult) string {
	for _, r := range results {
		if r.Outcome == models.ActionOutcomeFailure {
			return fmt.Sprintf("action %d (%s) failed: %s", r.Index, r.ActionType, r.Detail)
		}
	}
	return "execution failed"
}
