// Package models provides data models for the SOC core service.
package models

import "time"

// Alert severity levels, highest first.
const (
	SeverityCritical      = "critical"
	SeverityHigh          = "high"
	SeverityMedium        = "medium"
	SeverityLow           = "low"
	SeverityInformational = "informational"
)

// Alert status values.
const (
	AlertStatusNew           = "new"
	AlertStatusAssigned      = "assigned"
	AlertStatusInProgress    = "in_progress"
	AlertStatusPending       = "pending"
	AlertStatusResolved      = "resolved"
	AlertStatusClosed        = "closed"
	AlertStatusFalsePositive = "false_positive"
	AlertStatusEscalated     = "escalated"
)

// SeverityRank maps a severity to an ordinal for threshold comparisons.
// Higher is more severe. Unknown severities rank below informational.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInformational:
		return 1
	default:
		return 0
	}
}

// IsTerminalAlertStatus reports whether an alert status permits no further
// assignment or acknowledgement.
func IsTerminalAlertStatus(status string) bool {
	return status == AlertStatusResolved || status == AlertStatusClosed || status == AlertStatusFalsePositive
}

// Alert represents a single detected security event from a source system.
type Alert struct {
	ID          string `json:"id"`       // UUID v7
	AlertID     string `json:"alert_id"` // Human-readable, e.g. ALERT-20260830-0001
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	Source      string `json:"source"` // siem, edr, ids, ...

	// Detection metadata
	RuleName        string   `json:"rule_name,omitempty"`
	MitreTactics    []string `json:"mitre_tactics,omitempty"`
	MitreTechniques []string `json:"mitre_techniques,omitempty"`

	AffectedEntities []string               `json:"affected_entities,omitempty"`
	Enrichment       map[string]interface{} `json:"enrichment,omitempty"`
	RiskScore        float64                `json:"risk_score,omitempty"`
	ConfidenceScore  float64                `json:"confidence_score,omitempty"`

	AssignedTo *string    `json:"assigned_to,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`

	DetectedAt     time.Time  `json:"detected_at"`
	FirstSeen      time.Time  `json:"first_seen"`
	LastSeen       time.Time  `json:"last_seen"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	ResolutionNotes     string `json:"resolution_notes,omitempty"`
	FalsePositiveReason string `json:"false_positive_reason,omitempty"`

	CorrelationID *string `json:"correlation_id,omitempty"`
	ParentAlertID *string `json:"parent_alert_id,omitempty"` // Duplicate/child tree

	Tags     []string               `json:"tags,omitempty"`
	RawEvent map[string]interface{} `json:"raw_event,omitempty"`

	TenantID  string    `json:"tenant_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlertComment represents an append-only annotation on an alert.
type AlertComment struct {
	ID         string    `json:"id"`
	AlertID    string    `json:"alert_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateAlertRequest represents the request to create a new alert.
type CreateAlertRequest struct {
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	Severity         string                 `json:"severity"`
	Source           string                 `json:"source"`
	RuleName         string                 `json:"rule_name,omitempty"`
	MitreTactics     []string               `json:"mitre_tactics,omitempty"`
	MitreTechniques  []string               `json:"mitre_techniques,omitempty"`
	AffectedEntities []string               `json:"affected_entities,omitempty"`
	Enrichment       map[string]interface{} `json:"enrichment,omitempty"`
	RiskScore        float64                `json:"risk_score,omitempty"`
	ConfidenceScore  float64                `json:"confidence_score,omitempty"`
	DetectedAt       *time.Time             `json:"detected_at,omitempty"`
	FirstSeen        *time.Time             `json:"first_seen,omitempty"`
	LastSeen         *time.Time             `json:"last_seen,omitempty"`
	CorrelationID    *string                `json:"correlation_id,omitempty"`
	ParentAlertID    *string                `json:"parent_alert_id,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	RawEvent         map[string]interface{} `json:"raw_event,omitempty"`
}

// BulkCreateAlertsRequest represents the request to create several alerts at once.
type BulkCreateAlertsRequest struct {
	Alerts []CreateAlertRequest `json:"alerts"`
}

// UpdateAlertRequest represents a partial update to an alert.
type UpdateAlertRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Severity    *string                `json:"severity,omitempty"`
	Enrichment  map[string]interface{} `json:"enrichment,omitempty"`
	RiskScore   *float64               `json:"risk_score,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
}

// AssignAlertRequest represents the request to assign an alert to an analyst.
type AssignAlertRequest struct {
	Assignee string `json:"assignee"`
}

// ResolveAlertRequest represents the request to resolve an alert.
type ResolveAlertRequest struct {
	IsFalsePositive     bool   `json:"is_false_positive"`
	Notes               string `json:"notes,omitempty"`
	FalsePositiveReason string `json:"false_positive_reason,omitempty"`
}

// AddCommentRequest represents the request to append a comment to an alert.
type AddCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// ListAlertsRequest represents query parameters for listing alerts.
type ListAlertsRequest struct {
	Page     int
	Limit    int
	Status   string
	Severity string
	Source   string
	Assignee string
	From     *time.Time
	To       *time.Time
}

// ListAlertsResponse represents the response for listing alerts.
type ListAlertsResponse struct {
	Alerts     []*Alert   `json:"alerts"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination metadata.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
