package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// ---------------------------------------------------------------------------
// Playbooks

const playbookColumns = `
	id, name, description, status, version,
	trigger_type, trigger_conditions, actions,
	is_enabled, run_automatically, require_approval,
	max_concurrent_runs, timeout_seconds,
	total_runs, successful_runs, failed_runs, avg_execution_time,
	tenant_id, created_by, created_at, updated_at`

// CreatePlaybook inserts a new playbook.
func (r *PostgresRepository) CreatePlaybook(ctx context.Context, p *models.Playbook) error {
	conditions, err := json.Marshal(p.TriggerConditions)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO playbooks (` + playbookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.Version,
		p.TriggerType, conditions, actions,
		p.IsEnabled, p.RunAutomatically, p.RequireApproval,
		p.MaxConcurrentRuns, p.TimeoutSeconds,
		p.TotalRuns, p.SuccessfulRuns, p.FailedRuns, p.AvgExecutionTime,
		p.TenantID, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create playbook: %w", err)
	}
	return nil
}

func scanPlaybook(row pgx.Row) (*models.Playbook, error) {
	p := &models.Playbook{}
	var conditions, actions []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Status, &p.Version,
		&p.TriggerType, &conditions, &actions,
		&p.IsEnabled, &p.RunAutomatically, &p.RequireApproval,
		&p.MaxConcurrentRuns, &p.TimeoutSeconds,
		&p.TotalRuns, &p.SuccessfulRuns, &p.FailedRuns, &p.AvgExecutionTime,
		&p.TenantID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &p.TriggerConditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger conditions: %w", err)
		}
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &p.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}
	return p, nil
}

// GetPlaybook retrieves a playbook by ID.
func (r *PostgresRepository) GetPlaybook(ctx context.Context, id string) (*models.Playbook, error) {
	query := `SELECT ` + playbookColumns + ` FROM playbooks WHERE id = $1`
	p, err := scanPlaybook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlaybookNotFound
		}
		return nil, fmt.Errorf("failed to get playbook: %w", err)
	}
	return p, nil
}

// SavePlaybook persists the definition fields of a playbook. Run counters
// are excluded; they are only updated through RecordExecutionOutcome.
func (r *PostgresRepository) SavePlaybook(ctx context.Context, p *models.Playbook) error {
	conditions, err := json.Marshal(p.TriggerConditions)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		UPDATE playbooks SET
			name = $2, description = $3, status = $4, version = $5,
			trigger_type = $6, trigger_conditions = $7, actions = $8,
			is_enabled = $9, run_automatically = $10, require_approval = $11,
			max_concurrent_runs = $12, timeout_seconds = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.Version,
		p.TriggerType, conditions, actions,
		p.IsEnabled, p.RunAutomatically, p.RequireApproval,
		p.MaxConcurrentRuns, p.TimeoutSeconds, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save playbook: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlaybookNotFound
	}
	return nil
}

// ListPlaybooks retrieves a paginated, filtered list of playbooks.
func (r *PostgresRepository) ListPlaybooks(ctx context.Context, req *models.ListPlaybooksRequest) ([]*models.Playbook, int, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if req.Status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	if req.TriggerType != "" {
		whereClause += fmt.Sprintf(" AND trigger_type = $%d", argPos)
		args = append(args, req.TriggerType)
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM playbooks %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count playbooks: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	args = append(args, req.Limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM playbooks %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, playbookColumns, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list playbooks: %w", err)
	}
	defer rows.Close()

	playbooks := []*models.Playbook{}
	for rows.Next() {
		p, err := scanPlaybook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan playbook: %w", err)
		}
		playbooks = append(playbooks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return playbooks, total, nil
}

// ListMatchablePlaybooks retrieves active, enabled playbooks for the given
// trigger types.
func (r *PostgresRepository) ListMatchablePlaybooks(ctx context.Context, triggerTypes []string) ([]*models.Playbook, error) {
	query := `
		SELECT ` + playbookColumns + `
		FROM playbooks
		WHERE status = $1 AND is_enabled = true AND trigger_type = ANY($2)
		ORDER BY name ASC
	`
	rows, err := r.pool.Query(ctx, query, models.PlaybookStatusActive, triggerTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to list matchable playbooks: %w", err)
	}
	defer rows.Close()

	playbooks := []*models.Playbook{}
	for rows.Next() {
		p, err := scanPlaybook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playbook: %w", err)
		}
		playbooks = append(playbooks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playbooks, nil
}

// ---------------------------------------------------------------------------
// Executions

const executionColumns = `
	id, playbook_id, status, trigger_reason, alert_id, case_id,
	started_at, completed_at, action_results, error_message,
	approved_by, approval_decided_at, rejection_reason,
	executed_by, tenant_id, created_at`

// InsertExecutionAdmitted inserts ex only if the playbook has fewer than
// limit running executions. A per-playbook advisory lock serializes the
// count check against concurrent admissions; read-count-then-insert without
// it is a race.
func (r *PostgresRepository) InsertExecutionAdmitted(ctx context.Context, ex *models.PlaybookExecution, limit int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin admission transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", ex.PlaybookID); err != nil {
		return false, fmt.Errorf("failed to acquire admission lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM playbooks WHERE id = $1)", ex.PlaybookID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check playbook existence: %w", err)
	}
	if !exists {
		return false, ErrPlaybookNotFound
	}

	if limit > 0 {
		var running int
		err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM playbook_executions WHERE playbook_id = $1 AND status = $2",
			ex.PlaybookID, models.ExecutionStatusRunning,
		).Scan(&running)
		if err != nil {
			return false, fmt.Errorf("failed to count running executions: %w", err)
		}
		if running >= limit {
			return false, nil
		}
	}

	if err := insertExecution(ctx, tx, ex); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit admission: %w", err)
	}
	return true, nil
}

func insertExecution(ctx context.Context, tx pgx.Tx, ex *models.PlaybookExecution) error {
	results, err := json.Marshal(ex.ActionResults)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		INSERT INTO playbook_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = tx.Exec(ctx, query,
		ex.ID, ex.PlaybookID, ex.Status, ex.TriggerReason, ex.AlertID, ex.CaseID,
		ex.StartedAt, ex.CompletedAt, results, ex.ErrorMessage,
		ex.ApprovedBy, ex.ApprovalDecided, ex.RejectionReason,
		ex.ExecutedBy, ex.TenantID, ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

// CreateExecution inserts an execution record unconditionally. Used to
// record refused admissions as cancelled rather than dropping them.
func (r *PostgresRepository) CreateExecution(ctx context.Context, ex *models.PlaybookExecution) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertExecution(ctx, tx, ex); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanExecution(row pgx.Row) (*models.PlaybookExecution, error) {
	ex := &models.PlaybookExecution{}
	var results []byte
	err := row.Scan(
		&ex.ID, &ex.PlaybookID, &ex.Status, &ex.TriggerReason, &ex.AlertID, &ex.CaseID,
		&ex.StartedAt, &ex.CompletedAt, &results, &ex.ErrorMessage,
		&ex.ApprovedBy, &ex.ApprovalDecided, &ex.RejectionReason,
		&ex.ExecutedBy, &ex.TenantID, &ex.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &ex.ActionResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
		}
	}
	return ex, nil
}

// GetExecution retrieves an execution by ID.
func (r *PostgresRepository) GetExecution(ctx context.Context, id string) (*models.PlaybookExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM playbook_executions WHERE id = $1`
	ex, err := scanExecution(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return ex, nil
}

// SaveExecution persists the mutable fields of an execution.
func (r *PostgresRepository) SaveExecution(ctx context.Context, ex *models.PlaybookExecution) error {
	results, err := json.Marshal(ex.ActionResults)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		UPDATE playbook_executions SET
			status = $2, started_at = $3, completed_at = $4,
			action_results = $5, error_message = $6,
			approved_by = $7, approval_decided_at = $8, rejection_reason = $9
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		ex.ID, ex.Status, ex.StartedAt, ex.CompletedAt,
		results, ex.ErrorMessage,
		ex.ApprovedBy, ex.ApprovalDecided, ex.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// PromoteExecutionRunning transitions a pending execution to running under
// the same per-playbook advisory lock that admissions take, so an approval
// cannot race an admission past the concurrency limit.
func (r *PostgresRepository) PromoteExecutionRunning(ctx context.Context, executionID, actor string, limit int) (*models.PlaybookExecution, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin promotion transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var playbookID string
	err = tx.QueryRow(ctx, "SELECT playbook_id FROM playbook_executions WHERE id = $1", executionID).Scan(&playbookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrExecutionNotFound
		}
		return nil, false, fmt.Errorf("failed to load execution: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", playbookID); err != nil {
		return nil, false, fmt.Errorf("failed to acquire admission lock: %w", err)
	}

	// Re-read under the lock: the execution may have been decided while we
	// waited.
	var status string
	err = tx.QueryRow(ctx, "SELECT status FROM playbook_executions WHERE id = $1", executionID).Scan(&status)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read execution status: %w", err)
	}
	if status != models.ExecutionStatusPending {
		return nil, false, ErrExecutionNotPending
	}

	if limit > 0 {
		var running int
		err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM playbook_executions WHERE playbook_id = $1 AND status = $2",
			playbookID, models.ExecutionStatusRunning,
		).Scan(&running)
		if err != nil {
			return nil, false, fmt.Errorf("failed to count running executions: %w", err)
		}
		if running >= limit {
			return nil, false, nil
		}
	}

	now := time.Now().UTC()
	query := `
		UPDATE playbook_executions SET
			status = $2, started_at = $3, approved_by = $4, approval_decided_at = $3
		WHERE id = $1
		RETURNING ` + executionColumns
	ex, err := scanExecution(tx.QueryRow(ctx, query, executionID, models.ExecutionStatusRunning, now, actor))
	if err != nil {
		return nil, false, fmt.Errorf("failed to promote execution: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit promotion: %w", err)
	}
	return ex, true, nil
}

// TerminateExecutionIfPending conditionally applies a terminal decision to
// a pending execution. The status guard in the WHERE clause makes racing
// decisions resolve to exactly one winner.
func (r *PostgresRepository) TerminateExecutionIfPending(ctx context.Context, ex *models.PlaybookExecution) (bool, error) {
	query := `
		UPDATE playbook_executions SET
			status = $2, completed_at = $3, error_message = $4,
			approved_by = $5, approval_decided_at = $6, rejection_reason = $7
		WHERE id = $1 AND status = $8
	`
	result, err := r.pool.Exec(ctx, query,
		ex.ID, ex.Status, ex.CompletedAt, ex.ErrorMessage,
		ex.ApprovedBy, ex.ApprovalDecided, ex.RejectionReason,
		models.ExecutionStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to terminate execution: %w", err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM playbook_executions WHERE id = $1)", ex.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check execution existence: %w", err)
	}
	if !exists {
		return false, ErrExecutionNotFound
	}
	return false, nil
}

// ListExecutions retrieves a paginated, filtered list of executions.
func (r *PostgresRepository) ListExecutions(ctx context.Context, req *models.ListExecutionsRequest) ([]*models.PlaybookExecution, int, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if req.PlaybookID != "" {
		whereClause += fmt.Sprintf(" AND playbook_id = $%d", argPos)
		args = append(args, req.PlaybookID)
		argPos++
	}
	if req.Status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, req.Status)
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM playbook_executions %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count executions: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	args = append(args, req.Limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM playbook_executions %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, executionColumns, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	executions := []*models.PlaybookExecution{}
	for rows.Next() {
		ex, err := scanExecution(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return executions, total, nil
}

// CountExecutionsInStatus counts executions of a playbook in a given status.
func (r *PostgresRepository) CountExecutionsInStatus(ctx context.Context, playbookID, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM playbook_executions WHERE playbook_id = $1 AND status = $2",
		playbookID, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return n, nil
}

// RecordExecutionOutcome applies terminal bookkeeping to the owning
// playbook as a single SQL increment. The SET expressions read the pre-update
// row, so total_runs in the mean refers to the old count.
func (r *PostgresRepository) RecordExecutionOutcome(ctx context.Context, playbookID string, success bool, duration time.Duration) error {
	query := `
		UPDATE playbooks SET
			total_runs = total_runs + 1,
			successful_runs = successful_runs + CASE WHEN $2 THEN 1 ELSE 0 END,
			failed_runs = failed_runs + CASE WHEN $2 THEN 0 ELSE 1 END,
			avg_execution_time = (avg_execution_time * total_runs + $3) / (total_runs + 1)
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, playbookID, success, duration.Seconds())
	if err != nil {
		return fmt.Errorf("failed to record execution outcome: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlaybookNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reporting reads

// ListAlertsInWindow retrieves alerts detected within [from, to].
func (r *PostgresRepository) ListAlertsInWindow(ctx context.Context, from, to time.Time) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE detected_at >= $1 AND detected_at <= $2`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts in window: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ListCasesInWindow retrieves cases opened within [from, to].
func (r *PostgresRepository) ListCasesInWindow(ctx context.Context, from, to time.Time) ([]*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases c WHERE c.opened_at >= $1 AND c.opened_at <= $2`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases in window: %w", err)
	}
	defer rows.Close()

	cases := []*models.Case{}
	for rows.Next() {
		c, err := scanCase(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// ListExecutionsInWindow retrieves executions created within [from, to].
func (r *PostgresRepository) ListExecutionsInWindow(ctx context.Context, from, to time.Time) ([]*models.PlaybookExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM playbook_executions WHERE created_at >= $1 AND created_at <= $2`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions in window: %w", err)
	}
	defer rows.Close()

	executions := []*models.PlaybookExecution{}
	for rows.Next() {
		ex, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, ex)
	}
	return executions, rows.Err()
}

// CountAlertsInStatuses counts alerts whose status is in the given set.
func (r *PostgresRepository) CountAlertsInStatuses(ctx context.Context, statuses []string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM alerts WHERE status = ANY($1)", statuses).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// CountCasesInStatuses counts cases whose status is in the given set.
func (r *PostgresRepository) CountCasesInStatuses(ctx context.Context, statuses []string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cases WHERE status = ANY($1)", statuses).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}
	return n, nil
}

// CountPlaybooksInStatus counts playbooks in a status.
func (r *PostgresRepository) CountPlaybooksInStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM playbooks WHERE status = $1", status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count playbooks: %w", err)
	}
	return n, nil
}

// CountAllExecutionsInStatus counts executions across all playbooks in a status.
func (r *PostgresRepository) CountAllExecutionsInStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM playbook_executions WHERE status = $1", status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Shift handovers

// CreateHandover inserts a shift handover record.
func (r *PostgresRepository) CreateHandover(ctx context.Context, h *models.ShiftHandover) error {
	query := `
		INSERT INTO shift_handovers (id, summary, outgoing_analyst, incoming_analyst, open_alert_ids, open_case_ids, notes, tenant_id, created_at, acknowledged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		h.ID, h.Summary, h.OutgoingAnalyst, h.IncomingAnalyst, h.OpenAlertIDs, h.OpenCaseIDs, h.Notes, h.TenantID, h.CreatedAt, h.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("failed to create handover: %w", err)
	}
	return nil
}

// GetHandover retrieves a shift handover by ID.
func (r *PostgresRepository) GetHandover(ctx context.Context, id string) (*models.ShiftHandover, error) {
	query := `
		SELECT id, summary, outgoing_analyst, incoming_analyst, open_alert_ids, open_case_ids, notes, tenant_id, created_at, acknowledged_at
		FROM shift_handovers WHERE id = $1
	`
	h := &models.ShiftHandover{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&h.ID, &h.Summary, &h.OutgoingAnalyst, &h.IncomingAnalyst,
		&h.OpenAlertIDs, &h.OpenCaseIDs, &h.Notes, &h.TenantID, &h.CreatedAt, &h.AcknowledgedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHandoverNotFound
		}
		return nil, fmt.Errorf("failed to get handover: %w", err)
	}
	return h, nil
}

// SaveHandover persists the mutable fields of a shift handover.
func (r *PostgresRepository) SaveHandover(ctx context.Context, h *models.ShiftHandover) error {
	query := `
		UPDATE shift_handovers
		SET incoming_analyst = $2, acknowledged_at = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, h.ID, h.IncomingAnalyst, h.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("failed to save handover: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrHandoverNotFound
	}
	return nil
}
