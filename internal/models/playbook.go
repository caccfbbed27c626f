package models

import (
	"encoding/json"
	"time"
)

// Playbook status values.
const (
	PlaybookStatusDraft    = "draft"
	PlaybookStatusActive   = "active"
	PlaybookStatusDisabled = "disabled"
	PlaybookStatusArchived = "archived"
)

// Playbook trigger types.
const (
	TriggerManual        = "manual"
	TriggerAlertCreated  = "alert_created"
	TriggerAlertSeverity = "alert_severity"
	TriggerAlertSource   = "alert_source"
	TriggerCaseCreated   = "case_created"
	TriggerScheduled     = "scheduled"
	TriggerIOCMatch      = "ioc_match"
)

// ActionType identifies the kind of a playbook action.
type ActionType string

// Playbook action types.
const (
	ActionEnrich       ActionType = "enrich"
	ActionNotify       ActionType = "notify"
	ActionBlock        ActionType = "block"
	ActionIsolate      ActionType = "isolate"
	ActionQuarantine   ActionType = "quarantine"
	ActionCreateTicket ActionType = "create_ticket"
	ActionRunScript    ActionType = "run_script"
	ActionAPICall      ActionType = "api_call"
	ActionAssign       ActionType = "assign"
	ActionEscalate     ActionType = "escalate"
	ActionClose        ActionType = "close"
	ActionCustom       ActionType = "custom"
	ActionUnknown      ActionType = "unknown"
)

// knownActionTypes is the set of action kinds this service understands.
var knownActionTypes = map[ActionType]bool{
	ActionEnrich: true, ActionNotify: true, ActionBlock: true,
	ActionIsolate: true, ActionQuarantine: true, ActionCreateTicket: true,
	ActionRunScript: true, ActionAPICall: true, ActionAssign: true,
	ActionEscalate: true, ActionClose: true, ActionCustom: true,
}

// Playbook represents a reusable automation definition with a trigger and an
// ordered action sequence.
type Playbook struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Version     int    `json:"version"`

	TriggerType       string            `json:"trigger_type"`
	TriggerConditions TriggerConditions `json:"trigger_conditions"`

	Actions []Action `json:"actions"`

	IsEnabled         bool  `json:"is_enabled"`
	RunAutomatically  bool  `json:"run_automatically"`
	RequireApproval   bool  `json:"require_approval"`
	MaxConcurrentRuns int   `json:"max_concurrent_runs"`
	TimeoutSeconds    int64 `json:"timeout_seconds"`

	// Running counters, maintained by the execution scheduler.
	TotalRuns        int64   `json:"total_runs"`
	SuccessfulRuns   int64   `json:"successful_runs"`
	FailedRuns       int64   `json:"failed_runs"`
	AvgExecutionTime float64 `json:"avg_execution_time"` // seconds

	TenantID  string    `json:"tenant_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerConditions is the predicate set evaluated against a triggering
// event's fields. All set conditions are ANDed; an empty set matches
// unconditionally for the playbook's trigger type.
type TriggerConditions struct {
	MinSeverity string            `json:"min_severity,omitempty"` // Severity threshold (inclusive)
	Source      string            `json:"source,omitempty"`       // Source equality
	Fields      map[string]string `json:"fields,omitempty"`       // Free-form key/value predicates
}

// Action is a tagged union of playbook action variants. Type selects the
// variant; exactly one of the typed parameter structs is set for known
// kinds. Unrecognized kinds decode into ActionUnknown with the raw
// parameters preserved rather than failing.
type Action struct {
	Type ActionType `json:"type"`
	Name string     `json:"name,omitempty"`

	Enrich       *EnrichParams       `json:"enrich,omitempty"`
	Notify       *NotifyParams       `json:"notify,omitempty"`
	Block        *BlockParams        `json:"block,omitempty"`
	Isolate      *IsolateParams      `json:"isolate,omitempty"`
	Quarantine   *QuarantineParams   `json:"quarantine,omitempty"`
	CreateTicket *CreateTicketParams `json:"create_ticket,omitempty"`
	RunScript    *RunScriptParams    `json:"run_script,omitempty"`
	APICall      *APICallParams      `json:"api_call,omitempty"`
	Assign       *AssignParams       `json:"assign,omitempty"`
	Escalate     *EscalateParams     `json:"escalate,omitempty"`
	Close        *CloseParams        `json:"close,omitempty"`
	Custom       map[string]interface{} `json:"custom,omitempty"`

	// Raw holds the undecoded parameters of an unrecognized action kind.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// UnmarshalJSON decodes an action, mapping unrecognized kinds to
// ActionUnknown with the original payload kept in Raw.
func (a *Action) UnmarshalJSON(data []byte) error {
	type alias Action
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*a = Action(decoded)
	if !knownActionTypes[a.Type] {
		a.Type = ActionUnknown
		a.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// EnrichParams configures an enrich action.
type EnrichParams struct {
	Provider string   `json:"provider"` // e.g. threat-intel, geoip
	Fields   []string `json:"fields,omitempty"`
}

// NotifyParams configures a notify action.
type NotifyParams struct {
	Channel string `json:"channel"` // webhook, slack
	Target  string `json:"target,omitempty"`
	Message string `json:"message,omitempty"`
}

// BlockParams configures a block action.
type BlockParams struct {
	Indicator string `json:"indicator"` // IP, domain, hash
	Target    string `json:"target"`    // firewall, proxy, dns
	Duration  string `json:"duration,omitempty"`
}

// IsolateParams configures a host isolation action.
type IsolateParams struct {
	HostID string `json:"host_id"`
	Method string `json:"method,omitempty"` // edr, network
}

// QuarantineParams configures a file quarantine action.
type QuarantineParams struct {
	HostID   string `json:"host_id"`
	FilePath string `json:"file_path"`
}

// CreateTicketParams configures a ticket creation action.
type CreateTicketParams struct {
	System   string `json:"system"` // jira, servicenow
	Project  string `json:"project,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// RunScriptParams configures a script execution action.
type RunScriptParams struct {
	Script string            `json:"script"`
	Args   []string          `json:"args,omitempty"`
	Env    map[string]string `json:"env,omitempty"`
}

// APICallParams configures an outbound API call action.
type APICallParams struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// AssignParams configures an assignment action.
type AssignParams struct {
	Assignee string `json:"assignee"`
}

// EscalateParams configures an escalation action.
type EscalateParams struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// CloseParams configures a close action.
type CloseParams struct {
	Resolution string `json:"resolution,omitempty"`
}

// CreatePlaybookRequest represents the request to create a playbook.
type CreatePlaybookRequest struct {
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	TriggerType       string            `json:"trigger_type"`
	TriggerConditions TriggerConditions `json:"trigger_conditions"`
	Actions           []Action          `json:"actions"`
	RunAutomatically  bool              `json:"run_automatically"`
	RequireApproval   bool              `json:"require_approval"`
	MaxConcurrentRuns int               `json:"max_concurrent_runs"`
	TimeoutSeconds    int64             `json:"timeout_seconds"`
}

// UpdatePlaybookRequest represents a partial update to a playbook. Any
// update bumps the playbook version.
type UpdatePlaybookRequest struct {
	Name              *string            `json:"name,omitempty"`
	Description       *string            `json:"description,omitempty"`
	Status            *string            `json:"status,omitempty"`
	TriggerType       *string            `json:"trigger_type,omitempty"`
	TriggerConditions *TriggerConditions `json:"trigger_conditions,omitempty"`
	Actions           []Action           `json:"actions,omitempty"`
	RunAutomatically  *bool              `json:"run_automatically,omitempty"`
	RequireApproval   *bool              `json:"require_approval,omitempty"`
	MaxConcurrentRuns *int               `json:"max_concurrent_runs,omitempty"`
	TimeoutSeconds    *int64             `json:"timeout_seconds,omitempty"`
}

// ListPlaybooksRequest represents query parameters for listing playbooks.
type ListPlaybooksRequest struct {
	Page        int
	Limit       int
	Status      string
	TriggerType string
}

// ListPlaybooksResponse represents the response for listing playbooks.
type ListPlaybooksResponse struct {
	Playbooks  []*Playbook `json:"playbooks"`
	Pagination Pagination  `json:"pagination"`
}
