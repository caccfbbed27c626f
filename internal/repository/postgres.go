package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// ---------------------------------------------------------------------------
// Alerts

const alertColumns = `
	id, alert_id, title, description, severity, status, source,
	rule_name, mitre_tactics, mitre_techniques, affected_entities,
	enrichment, risk_score, confidence_score,
	assigned_to, assigned_at, detected_at, first_seen, last_seen,
	acknowledged_at, resolved_at, resolution_notes, false_positive_reason,
	correlation_id, parent_alert_id, tags, raw_event,
	tenant_id, created_by, created_at, updated_at`

// CreateAlert inserts a new alert.
func (r *PostgresRepository) CreateAlert(ctx context.Context, a *models.Alert) error {
	enrichment, err := json.Marshal(a.Enrichment)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment: %w", err)
	}
	rawEvent, err := json.Marshal(a.RawEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal raw event: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30, $31)
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, a.AlertID, a.Title, a.Description, a.Severity, a.Status, a.Source,
		a.RuleName, a.MitreTactics, a.MitreTechniques, a.AffectedEntities,
		enrichment, a.RiskScore, a.ConfidenceScore,
		a.AssignedTo, a.AssignedAt, a.DetectedAt, a.FirstSeen, a.LastSeen,
		a.AcknowledgedAt, a.ResolvedAt, a.ResolutionNotes, a.FalsePositiveReason,
		a.CorrelationID, a.ParentAlertID, a.Tags, rawEvent,
		a.TenantID, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	var enrichment, rawEvent []byte
	err := row.Scan(
		&a.ID, &a.AlertID, &a.Title, &a.Description, &a.Severity, &a.Status, &a.Source,
		&a.RuleName, &a.MitreTactics, &a.MitreTechniques, &a.AffectedEntities,
		&enrichment, &a.RiskScore, &a.ConfidenceScore,
		&a.AssignedTo, &a.AssignedAt, &a.DetectedAt, &a.FirstSeen, &a.LastSeen,
		&a.AcknowledgedAt, &a.ResolvedAt, &a.ResolutionNotes, &a.FalsePositiveReason,
		&a.CorrelationID, &a.ParentAlertID, &a.Tags, &rawEvent,
		&a.TenantID, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(enrichment) > 0 {
		if err := json.Unmarshal(enrichment, &a.Enrichment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enrichment: %w", err)
		}
	}
	if len(rawEvent) > 0 {
		if err := json.Unmarshal(rawEvent, &a.RawEvent); err != nil {
			return nil, fmt.Errorf("failed to unmarshal raw event: %w", err)
		}
	}
	return a, nil
}

// GetAlert retrieves an alert by ID.
func (r *PostgresRepository) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// SaveAlert persists all mutable fields of an alert.
func (r *PostgresRepository) SaveAlert(ctx context.Context, a *models.Alert) error {
	enrichment, err := json.Marshal(a.Enrichment)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment: %w", err)
	}

	query := `
		UPDATE alerts SET
			title = $2, description = $3, severity = $4, status = $5,
			enrichment = $6, risk_score = $7,
			assigned_to = $8, assigned_at = $9,
			acknowledged_at = $10, resolved_at = $11,
			resolution_notes = $12, false_positive_reason = $13,
			tags = $14, updated_at = $15
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		a.ID, a.Title, a.Description, a.Severity, a.Status,
		enrichment, a.RiskScore,
		a.AssignedTo, a.AssignedAt,
		a.AcknowledgedAt, a.ResolvedAt,
		a.ResolutionNotes, a.FalsePositiveReason,
		a.Tags, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ListAlerts retrieves a paginated, filtered list of alerts.
func (r *PostgresRepository) ListAlerts(ctx context.Context, req *models.ListAlertsRequest) ([]*models.Alert, int, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if req.Status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	if req.Severity != "" {
		whereClause += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, req.Severity)
		argPos++
	}
	if req.Source != "" {
		whereClause += fmt.Sprintf(" AND source = $%d", argPos)
		args = append(args, req.Source)
		argPos++
	}
	if req.Assignee != "" {
		whereClause += fmt.Sprintf(" AND assigned_to = $%d", argPos)
		args = append(args, req.Assignee)
		argPos++
	}
	if req.From != nil {
		whereClause += fmt.Sprintf(" AND detected_at >= $%d", argPos)
		args = append(args, *req.From)
		argPos++
	}
	if req.To != nil {
		whereClause += fmt.Sprintf(" AND detected_at <= $%d", argPos)
		args = append(args, *req.To)
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM alerts %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	args = append(args, req.Limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM alerts %s
		ORDER BY detected_at DESC
		LIMIT $%d OFFSET $%d
	`, alertColumns, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return alerts, total, nil
}

// AddAlertComment appends a comment to an alert.
func (r *PostgresRepository) AddAlertComment(ctx context.Context, c *models.AlertComment) error {
	query := `
		INSERT INTO alert_comments (id, alert_id, author, content, is_internal, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM alerts WHERE id = $2)
	`
	result, err := r.pool.Exec(ctx, query, c.ID, c.AlertID, c.Author, c.Content, c.IsInternal, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add alert comment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ListAlertComments retrieves comments for an alert in creation order.
func (r *PostgresRepository) ListAlertComments(ctx context.Context, alertID string) ([]*models.AlertComment, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM alerts WHERE id = $1)", alertID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check alert existence: %w", err)
	}
	if !exists {
		return nil, ErrAlertNotFound
	}

	query := `
		SELECT id, alert_id, author, content, is_internal, created_at
		FROM alert_comments
		WHERE alert_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.AlertComment{}
	for rows.Next() {
		c := &models.AlertComment{}
		if err := rows.Scan(&c.ID, &c.AlertID, &c.Author, &c.Content, &c.IsInternal, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return comments, nil
}

// ---------------------------------------------------------------------------
// Cases

const caseColumns = `
	c.id, c.case_number, c.title, c.description, c.status, c.priority,
	c.assignee_id, c.assigned_team,
	c.escalated_to, c.escalation_reason, c.escalated_at,
	c.time_to_detect, c.time_to_respond, c.time_to_resolve,
	c.resolution_summary, c.root_cause, c.lessons_learned, c.incident_id,
	c.opened_at, c.resolved_at, c.closed_at,
	c.tenant_id, c.created_by, c.created_at, c.updated_at`

// CreateCase inserts a new case.
func (r *PostgresRepository) CreateCase(ctx context.Context, c *models.Case) error {
	query := `
		INSERT INTO cases (
			id, case_number, title, description, status, priority,
			assignee_id, assigned_team,
			escalated_to, escalation_reason, escalated_at,
			time_to_detect, time_to_respond, time_to_resolve,
			resolution_summary, root_cause, lessons_learned, incident_id,
			opened_at, resolved_at, closed_at,
			tenant_id, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.CaseNumber, c.Title, c.Description, c.Status, c.Priority,
		c.AssigneeID, c.AssignedTeam,
		c.EscalatedTo, c.EscalationReason, c.EscalatedAt,
		c.TimeToDetect, c.TimeToRespond, c.TimeToResolve,
		c.ResolutionSummary, c.RootCause, c.LessonsLearned, c.IncidentID,
		c.OpenedAt, c.ResolvedAt, c.ClosedAt,
		c.TenantID, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

func scanCase(row pgx.Row, withAlertCount bool) (*models.Case, error) {
	c := &models.Case{}
	dest := []interface{}{
		&c.ID, &c.CaseNumber, &c.Title, &c.Description, &c.Status, &c.Priority,
		&c.AssigneeID, &c.AssignedTeam,
		&c.EscalatedTo, &c.EscalationReason, &c.EscalatedAt,
		&c.TimeToDetect, &c.TimeToRespond, &c.TimeToResolve,
		&c.ResolutionSummary, &c.RootCause, &c.LessonsLearned, &c.IncidentID,
		&c.OpenedAt, &c.ResolvedAt, &c.ClosedAt,
		&c.TenantID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	}
	if withAlertCount {
		dest = append(dest, &c.AlertCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCase retrieves a case by ID with its alert count.
func (r *PostgresRepository) GetCase(ctx context.Context, id string) (*models.Case, error) {
	query := `
		SELECT ` + caseColumns + `,
			COUNT(ca.alert_id) AS alert_count
		FROM cases c
		LEFT JOIN case_alerts ca ON c.id = ca.case_id
		WHERE c.id = $1
		GROUP BY c.id
	`
	c, err := scanCase(r.pool.QueryRow(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// SaveCase persists all mutable fields of a case.
func (r *PostgresRepository) SaveCase(ctx context.Context, c *models.Case) error {
	query := `
		UPDATE cases SET
			title = $2, description = $3, status = $4, priority = $5,
			assignee_id = $6, assigned_team = $7,
			escalated_to = $8, escalation_reason = $9, escalated_at = $10,
			time_to_detect = $11, time_to_respond = $12, time_to_resolve = $13,
			resolution_summary = $14, root_cause = $15, lessons_learned = $16,
			incident_id = $17, resolved_at = $18, closed_at = $19, updated_at = $20
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Description, c.Status, c.Priority,
		c.AssigneeID, c.AssignedTeam,
		c.EscalatedTo, c.EscalationReason, c.EscalatedAt,
		c.TimeToDetect, c.TimeToRespond, c.TimeToResolve,
		c.ResolutionSummary, c.RootCause, c.LessonsLearned,
		c.IncidentID, c.ResolvedAt, c.ClosedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// ListCases retrieves a paginated, filtered list of cases with alert counts.
func (r *PostgresRepository) ListCases(ctx context.Context, req *models.ListCasesRequest) ([]*models.Case, int, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if req.Status != "" {
		whereClause += fmt.Sprintf(" AND c.status = $%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	if req.Priority != "" {
		whereClause += fmt.Sprintf(" AND c.priority = $%d", argPos)
		args = append(args, req.Priority)
		argPos++
	}
	if req.AssigneeID != "" {
		whereClause += fmt.Sprintf(" AND c.assignee_id = $%d", argPos)
		args = append(args, req.AssigneeID)
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cases c %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	args = append(args, req.Limit, offset)
	query := fmt.Sprintf(`
		SELECT %s,
			COUNT(ca.alert_id) AS alert_count
		FROM cases c
		LEFT JOIN case_alerts ca ON c.id = ca.case_id
		%s
		GROUP BY c.id
		ORDER BY c.opened_at DESC
		LIMIT $%d OFFSET $%d
	`, caseColumns, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	cases := []*models.Case{}
	for rows.Next() {
		c, err := scanCase(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return cases, total, nil
}

// LinkAlertToCase links an alert to a case. Linking an already-linked alert
// is a no-op.
func (r *PostgresRepository) LinkAlertToCase(ctx context.Context, caseID, alertID, addedBy string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)", caseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check case existence: %w", err)
	}
	if !exists {
		return false, ErrCaseNotFound
	}
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM alerts WHERE id = $1)", alertID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check alert existence: %w", err)
	}
	if !exists {
		return false, ErrAlertNotFound
	}

	query := `
		INSERT INTO case_alerts (case_id, alert_id, added_at, added_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (case_id, alert_id) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query, caseID, alertID, time.Now().UTC(), addedBy)
	if err != nil {
		return false, fmt.Errorf("failed to link alert to case: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListCaseAlerts retrieves all alert links for a case.
func (r *PostgresRepository) ListCaseAlerts(ctx context.Context, caseID string) ([]*models.CaseAlert, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)", caseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check case existence: %w", err)
	}
	if !exists {
		return nil, ErrCaseNotFound
	}

	query := `
		SELECT case_id, alert_id, added_at, added_by
		FROM case_alerts
		WHERE case_id = $1
		ORDER BY added_at ASC
	`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list case alerts: %w", err)
	}
	defer rows.Close()

	links := []*models.CaseAlert{}
	for rows.Next() {
		l := &models.CaseAlert{}
		if err := rows.Scan(&l.CaseID, &l.AlertID, &l.AddedAt, &l.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan case alert: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return links, nil
}

// CreateTask inserts a task owned by an existing case.
func (r *PostgresRepository) CreateTask(ctx context.Context, t *models.CaseTask) error {
	query := `
		INSERT INTO case_tasks (id, case_id, title, description, status, assignee_id, due_at, completed_at, created_by, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE EXISTS (SELECT 1 FROM cases WHERE id = $2)
	`
	result, err := r.pool.Exec(ctx, query,
		t.ID, t.CaseID, t.Title, t.Description, t.Status, t.AssigneeID, t.DueAt, t.CompletedAt, t.CreatedBy, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// GetTask retrieves a task scoped to its case.
func (r *PostgresRepository) GetTask(ctx context.Context, caseID, taskID string) (*models.CaseTask, error) {
	query := `
		SELECT id, case_id, title, description, status, assignee_id, due_at, completed_at, created_by, created_at
		FROM case_tasks
		WHERE id = $1 AND case_id = $2
	`
	t := &models.CaseTask{}
	err := r.pool.QueryRow(ctx, query, taskID, caseID).Scan(
		&t.ID, &t.CaseID, &t.Title, &t.Description, &t.Status, &t.AssigneeID, &t.DueAt, &t.CompletedAt, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// SaveTask persists all mutable fields of a task.
func (r *PostgresRepository) SaveTask(ctx context.Context, t *models.CaseTask) error {
	query := `
		UPDATE case_tasks
		SET title = $2, description = $3, status = $4, assignee_id = $5, due_at = $6, completed_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, t.ID, t.Title, t.Description, t.Status, t.AssigneeID, t.DueAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListTasks retrieves the tasks owned by a case in creation order.
func (r *PostgresRepository) ListTasks(ctx context.Context, caseID string) ([]*models.CaseTask, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)", caseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check case existence: %w", err)
	}
	if !exists {
		return nil, ErrCaseNotFound
	}

	query := `
		SELECT id, case_id, title, description, status, assignee_id, due_at, completed_at, created_by, created_at
		FROM case_tasks
		WHERE case_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.CaseTask{}
	for rows.Next() {
		t := &models.CaseTask{}
		if err := rows.Scan(&t.ID, &t.CaseID, &t.Title, &t.Description, &t.Status, &t.AssigneeID, &t.DueAt, &t.CompletedAt, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tasks, nil
}

// AppendTimeline appends an entry to a case timeline. Entries are never
// updated or deleted.
func (r *PostgresRepository) AppendTimeline(ctx context.Context, e *models.CaseTimelineEntry) error {
	query := `
		INSERT INTO case_timeline (id, case_id, entry_type, description, author, evidence, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM cases WHERE id = $2)
	`
	result, err := r.pool.Exec(ctx, query, e.ID, e.CaseID, e.EntryType, e.Description, e.Author, e.Evidence, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append timeline entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// ListTimeline retrieves a case timeline in chronological order.
func (r *PostgresRepository) ListTimeline(ctx context.Context, caseID string) ([]*models.CaseTimelineEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)", caseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check case existence: %w", err)
	}
	if !exists {
		return nil, ErrCaseNotFound
	}

	query := `
		SELECT id, case_id, entry_type, description, author, evidence, created_at
		FROM case_timeline
		WHERE case_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	defer rows.Close()

	entries := []*models.CaseTimelineEntry{}
	for rows.Next() {
		e := &models.CaseTimelineEntry{}
		if err := rows.Scan(&e.ID, &e.CaseID, &e.EntryType, &e.Description, &e.Author, &e.Evidence, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
