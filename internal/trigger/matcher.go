// Package trigger evaluates alert and case events against playbook trigger
// conditions. Matching is pure; dispatching matched playbooks to the
// execution scheduler is the Dispatcher's job.
package trigger

import (
	"fmt"
	"strings"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// alertTriggerTypes are the trigger types compatible with alert events.
var alertTriggerTypes = []string{
	models.TriggerAlertCreated,
	models.TriggerAlertSeverity,
	models.TriggerAlertSource,
	models.TriggerIOCMatch,
}

// alertUpdateTriggerTypes are the trigger types re-evaluated on alert
// updates. alert_created is excluded: creation-scoped playbooks fire once
// per alert, never again on later edits.
var alertUpdateTriggerTypes = []string{
	models.TriggerAlertSeverity,
	models.TriggerAlertSource,
	models.TriggerIOCMatch,
}

// caseTriggerTypes are the trigger types compatible with case events.
var caseTriggerTypes = []string{models.TriggerCaseCreated}

// MatchAlert reports whether a playbook's trigger conditions match an alert.
// All set conditions are ANDed; an empty condition set matches any alert for
// a compatible trigger type.
func MatchAlert(p *models.Playbook, a *models.Alert) bool {
	switch p.TriggerType {
	case models.TriggerAlertCreated, models.TriggerAlertSeverity,
		models.TriggerAlertSource, models.TriggerIOCMatch:
	default:
		return false
	}

	cond := p.TriggerConditions
	if cond.MinSeverity != "" && models.SeverityRank(a.Severity) < models.SeverityRank(cond.MinSeverity) {
		return false
	}
	if cond.Source != "" && a.Source != cond.Source {
		return false
	}
	for key, want := range cond.Fields {
		got, ok := alertField(a, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// MatchCase reports whether a playbook's trigger conditions match a case.
func MatchCase(p *models.Playbook, c *models.Case) bool {
	if p.TriggerType != models.TriggerCaseCreated {
		return false
	}

	cond := p.TriggerConditions
	if cond.MinSeverity != "" && models.SeverityRank(c.Priority) < models.SeverityRank(cond.MinSeverity) {
		return false
	}
	for key, want := range cond.Fields {
		got, ok := caseField(c, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func alertField(a *models.Alert, key string) (string, bool) {
	switch key {
	case "severity":
		return a.Severity, true
	case "status":
		return a.Status, true
	case "source":
		return a.Source, true
	case "title":
		return a.Title, true
	case "rule_name":
		return a.RuleName, true
	case "tenant_id":
		return a.TenantID, true
	}
	// Dotted keys reach into the enrichment map, e.g. enrichment.geoip.country.
	if rest, ok := strings.CutPrefix(key, "enrichment."); ok {
		return lookupNested(a.Enrichment, rest)
	}
	return "", false
}

func caseField(c *models.Case, key string) (string, bool) {
	switch key {
	case "status":
		return c.Status, true
	case "priority":
		return c.Priority, true
	case "title":
		return c.Title, true
	case "assigned_team":
		return c.AssignedTeam, true
	case "tenant_id":
		return c.TenantID, true
	}
	return "", false
}

func lookupNested(m map[string]interface{}, path string) (string, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = m
	for _, part := range parts {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		cur, ok = obj[part]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}
