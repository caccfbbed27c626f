package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

func matcherAlert() *models.Alert {
	return &models.Alert{
		AlertID:  "ALERT-20260515-0001",
		Title:    "Outbound connection to known C2 infrastructure",
		Severity: models.SeverityHigh,
		Status:   models.AlertStatusNew,
		Source:   "edr",
		RuleName: "net-c2-beacon",
		TenantID: "default",
		Enrichment: map[string]interface{}{
			"geoip": map[string]interface{}{
				"country": "NL",
			},
			"confidence": 87,
			"verdict":    "malicious",
		},
	}
}

func TestMatchAlert(t *testing.T) {
	tests := []struct {
		name        string
		triggerType string
		conditions  models.TriggerConditions
		mutate      func(a *models.Alert)
		want        bool
	}{
		{
			name:        "empty conditions match any alert",
			triggerType: models.TriggerAlertCreated,
			want:        true,
		},
		{
			name:        "case trigger never matches alerts",
			triggerType: models.TriggerCaseCreated,
			want:        false,
		},
		{
			name:        "manual trigger never matches alerts",
			triggerType: models.TriggerManual,
			want:        false,
		},
		{
			name:        "severity at threshold",
			triggerType: models.TriggerAlertSeverity,
			conditions:  models.TriggerConditions{MinSeverity: models.SeverityHigh},
			want:        true,
		},
		{
			name:        "severity above threshold",
			triggerType: models.TriggerAlertSeverity,
			conditions:  models.TriggerConditions{MinSeverity: models.SeverityMedium},
			want:        true,
		},
		{
			name:        "severity below threshold",
			triggerType: models.TriggerAlertSeverity,
			conditions:  models.TriggerConditions{MinSeverity: models.SeverityCritical},
			want:        false,
		},
		{
			name:        "unknown severity never clears a threshold",
			triggerType: models.TriggerAlertSeverity,
			conditions:  models.TriggerConditions{MinSeverity: models.SeverityInformational},
			mutate:      func(a *models.Alert) { a.Severity = "catastrophic" },
			want:        false,
		},
		{
			name:        "source match",
			triggerType: models.TriggerAlertSource,
			conditions:  models.TriggerConditions{Source: "edr"},
			want:        true,
		},
		{
			name:        "source mismatch",
			triggerType: models.TriggerAlertSource,
			conditions:  models.TriggerConditions{Source: "siem"},
			want:        false,
		},
		{
			name:        "all field conditions must hold",
			triggerType: models.TriggerAlertCreated,
			conditions: models.TriggerConditions{
				Fields: map[string]string{
					"rule_name": "net-c2-beacon",
					"status":    models.AlertStatusNew,
				},
			},
			want: true,
		},
		{
			name:        "one failing field condition rejects",
			triggerType: models.TriggerAlertCreated,
			conditions: models.TriggerConditions{
				Fields: map[string]string{
					"rule_name": "net-c2-beacon",
					"tenant_id": "acme",
				},
			},
			want: false,
		},
		{
			name:        "severity and source and fields are combined",
			triggerType: models.TriggerIOCMatch,
			conditions: models.TriggerConditions{
				MinSeverity: models.SeverityMedium,
				Source:      "edr",
				Fields:      map[string]string{"title": "Outbound connection to known C2 infrastructure"},
			},
			want: true,
		},
		{
			name:        "unknown field key rejects",
			triggerType: models.TriggerAlertCreated,
			conditions:  models.TriggerConditions{Fields: map[string]string{"hostname": "web-01"}},
			want:        false,
		},
		{
			name:        "nested enrichment lookup",
			triggerType: models.TriggerIOCMatch,
			conditions:  models.TriggerConditions{Fields: map[string]string{"enrichment.geoip.country": "NL"}},
			want:        true,
		},
		{
			name:        "non-string enrichment values compare by formatting",
			triggerType: models.TriggerIOCMatch,
			conditions:  models.TriggerConditions{Fields: map[string]string{"enrichment.confidence": "87"}},
			want:        true,
		},
		{
			name:        "missing enrichment path rejects",
			triggerType: models.TriggerIOCMatch,
			conditions:  models.TriggerConditions{Fields: map[string]string{"enrichment.geoip.asn": "64500"}},
			want:        false,
		},
		{
			name:        "path through a scalar rejects",
			triggerType: models.TriggerIOCMatch,
			conditions:  models.TriggerConditions{Fields: map[string]string{"enrichment.verdict.score": "1"}},
			want:        false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := matcherAlert()
			if tt.mutate != nil {
				tt.mutate(a)
			}
			p := &models.Playbook{
				TriggerType:       tt.triggerType,
				TriggerConditions: tt.conditions,
			}
			assert.Equal(t, tt.want, MatchAlert(p, a))
		})
	}
}

func TestMatchCase(t *testing.T) {
	c := &models.Case{
		CaseNumber:   "CASE-2026-0042",
		Title:        "Credential stuffing campaign",
		Status:       models.CaseStatusOpen,
		Priority:     models.SeverityCritical,
		AssignedTeam: "tier-1",
		TenantID:     "default",
	}

	tests := []struct {
		name        string
		triggerType string
		conditions  models.TriggerConditions
		want        bool
	}{
		{
			name:        "empty conditions match any case",
			triggerType: models.TriggerCaseCreated,
			want:        true,
		},
		{
			name:        "alert trigger never matches cases",
			triggerType: models.TriggerAlertCreated,
			want:        false,
		},
		{
			name:        "priority clears severity threshold",
			triggerType: models.TriggerCaseCreated,
			conditions:  models.TriggerConditions{MinSeverity: models.SeverityHigh},
			want:        true,
		},
		{
			name:        "field conditions on case attributes",
			triggerType: models.TriggerCaseCreated,
			conditions: models.TriggerConditions{
				Fields: map[string]string{
					"assigned_team": "tier-1",
					"status":        models.CaseStatusOpen,
				},
			},
			want: true,
		},
		{
			name:        "field mismatch rejects",
			triggerType: models.TriggerCaseCreated,
			conditions:  models.TriggerConditions{Fields: map[string]string{"assigned_team": "tier-2"}},
			want:        false,
		},
		{
			name:        "alert-only field key rejects",
			triggerType: models.TriggerCaseCreated,
			conditions:  models.TriggerConditions{Fields: map[string]string{"rule_name": "net-c2-beacon"}},
			want:        false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Playbook{
				TriggerType:       tt.triggerType,
				TriggerConditions: tt.conditions,
			}
			assert.Equal(t, tt.want, MatchCase(p, c))
		})
	}
}
