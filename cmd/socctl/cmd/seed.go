package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/vantor-systems/vantor-soc/cmd/socctl/internal/client"
	"github.com/vantor-systems/vantor-soc/cmd/socctl/internal/output"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed realistic test data",
	Long: `Generate realistic alerts, cases, and playbooks against a running
SOC instance for testing and development.

Examples:
  # 50 alerts spread over the last 24 hours
  socctl seed --alerts 50 --spread 24h

  # Full dataset: alerts, cases linking them, and sample playbooks
  socctl seed --alerts 200 --cases 10 --playbooks`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("alerts", 50, "Number of alerts to generate")
	seedCmd.Flags().Int("cases", 0, "Number of cases to open over the generated alerts")
	seedCmd.Flags().Bool("playbooks", false, "Create sample response playbooks")
	seedCmd.Flags().Duration("spread", 24*time.Hour, "Detection times are spread backwards over this window")
}

var seedSources = []string{"siem", "edr", "ids", "waf", "dlp", "email-gateway"}

var seedScenarios = []struct {
	title      string
	severity   string
	ruleName   string
	tactics    []string
	techniques []string
}{
	{"Brute force authentication attempt", "high", "auth-bruteforce-threshold", []string{"TA0006"}, []string{"T1110"}},
	{"Suspicious PowerShell execution", "high", "proc-encoded-powershell", []string{"TA0002"}, []string{"T1059.001"}},
	{"Outbound connection to known C2 infrastructure", "critical", "net-c2-beacon", []string{"TA0011"}, []string{"T1071"}},
	{"Possible credential dumping via LSASS access", "critical", "proc-lsass-access", []string{"TA0006"}, []string{"T1003.001"}},
	{"Anomalous volume of DNS queries", "medium", "dns-tunneling-volume", []string{"TA0010"}, []string{"T1048.003"}},
	{"Login from unusual geographic location", "medium", "auth-impossible-travel", []string{"TA0001"}, []string{"T1078"}},
	{"Malware signature detected on endpoint", "high", "edr-malware-detected", []string{"TA0002"}, []string{"T1204"}},
	{"Large data transfer to external storage", "medium", "dlp-bulk-upload", []string{"TA0010"}, []string{"T1567.002"}},
	{"Phishing email with malicious attachment", "medium", "email-malicious-attachment", []string{"TA0001"}, []string{"T1566.001"}},
	{"Privilege escalation via scheduled task", "high", "proc-schtask-system", []string{"TA0004"}, []string{"T1053.005"}},
	{"Disabled security tooling on host", "high", "edr-defense-evasion", []string{"TA0005"}, []string{"T1562.001"}},
	{"Port scan from internal host", "low", "net-internal-portscan", []string{"TA0007"}, []string{"T1046"}},
}

func runSeed(cmd *cobra.Command, args []string) error {
	alertCount, _ := cmd.Flags().GetInt("alerts")
	caseCount, _ := cmd.Flags().GetInt("cases")
	withPlaybooks, _ := cmd.Flags().GetBool("playbooks")
	spread, _ := cmd.Flags().GetDuration("spread")

	gofakeit.Seed(time.Now().UnixNano())
	api := apiClient(cmd)

	created := make([]string, 0, alertCount)
	for i := 0; i < alertCount; i++ {
		req := generateAlert(i, alertCount, spread)
		alert, err := api.CreateAlert(req)
		if err != nil {
			return fmt.Errorf("failed to create alert %d/%d: %w", i+1, alertCount, err)
		}
		created = append(created, alert.ID)
	}
	if alertCount > 0 {
		output.Success("Created %d alerts", alertCount)
	}

	for i := 0; i < caseCount; i++ {
		if len(created) == 0 {
			output.Warn("No alerts available to build cases from")
			break
		}
		linked := pickAlerts(created, 1+rand.Intn(4))
		cs, err := api.CreateCase(&models.CreateCaseRequest{
			Title:       fmt.Sprintf("Investigation: %s", seedScenarios[rand.Intn(len(seedScenarios))].title),
			Description: gofakeit.Sentence(12),
			Priority:    []string{"low", "medium", "high", "critical"}[rand.Intn(4)],
			AlertIDs:    linked,
		})
		if err != nil {
			return fmt.Errorf("failed to create case %d/%d: %w", i+1, caseCount, err)
		}
		output.Info("Opened case %s with %d alerts", cs.CaseNumber, len(linked))
	}

	if withPlaybooks {
		if err := seedPlaybooks(api); err != nil {
			return err
		}
	}

	output.Success("Seeding complete")
	return nil
}

func generateAlert(index, total int, spread time.Duration) *models.CreateAlertRequest {
	scenario := seedScenarios[rand.Intn(len(seedScenarios))]

	// Spread detection times backwards from now with jitter so the
	// timeline looks organic rather than uniform.
	detectedAt := time.Now().UTC()
	if spread > 0 && total > 0 {
		base := time.Duration(float64(spread) * float64(index) / float64(total))
		jitter := time.Duration(rand.Int63n(int64(spread) / int64(total+1)))
		detectedAt = detectedAt.Add(-(spread - base - jitter))
	}
	firstSeen := detectedAt.Add(-time.Duration(rand.Intn(600)) * time.Second)

	host := gofakeit.DomainName()
	user := gofakeit.Username()
	srcIP := gofakeit.IPv4Address()

	return &models.CreateAlertRequest{
		Title:           scenario.title,
		Description:     gofakeit.Sentence(15),
		Severity:        scenario.severity,
		Source:          seedSources[rand.Intn(len(seedSources))],
		RuleName:        scenario.ruleName,
		MitreTactics:    scenario.tactics,
		MitreTechniques: scenario.techniques,
		AffectedEntities: []string{
			"host:" + host,
			"user:" + user,
			"ip:" + srcIP,
		},
		RiskScore:       10 + rand.Float64()*90,
		ConfidenceScore: 0.4 + rand.Float64()*0.6,
		DetectedAt:      &detectedAt,
		FirstSeen:       &firstSeen,
		LastSeen:        &detectedAt,
		Tags:            []string{"seeded"},
		RawEvent: map[string]interface{}{
			"src_ip":     srcIP,
			"dst_ip":     gofakeit.IPv4Address(),
			"hostname":   host,
			"username":   user,
			"user_agent": gofakeit.UserAgent(),
			"session_id": "sess-" + gofakeit.UUID()[:8],
		},
	}
}

func pickAlerts(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	picked := make([]string, 0, n)
	for _, idx := range rand.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

func seedPlaybooks(api *client.Client) error {
	playbooks := []*models.CreatePlaybookRequest{
		{
			Name:        "Enrich and notify on critical alerts",
			Description: "Enriches every critical alert and posts it to the response channel.",
			TriggerType: "alert_severity",
			TriggerConditions: models.TriggerConditions{
				MinSeverity: "critical",
			},
			Actions: []models.Action{
				{Type: models.ActionEnrich, Name: "threat intel lookup", Enrich: &models.EnrichParams{Provider: "threat-intel"}},
				{Type: models.ActionNotify, Name: "page responders", Notify: &models.NotifyParams{Channel: "log", Message: "Critical alert requires attention"}},
			},
			RunAutomatically:  true,
			MaxConcurrentRuns: 3,
			TimeoutSeconds:    120,
		},
		{
			Name:        "Contain confirmed C2 traffic",
			Description: "Blocks the indicator and isolates the host once approved by an analyst.",
			TriggerType: "ioc_match",
			TriggerConditions: models.TriggerConditions{
				MinSeverity: "high",
			},
			Actions: []models.Action{
				{Type: models.ActionBlock, Name: "block indicator", Block: &models.BlockParams{Indicator: "src_ip", Target: "firewall", Duration: "24h"}},
				{Type: models.ActionIsolate, Name: "isolate host", Isolate: &models.IsolateParams{HostID: "hostname", Method: "edr"}},
				{Type: models.ActionCreateTicket, Name: "open incident ticket", CreateTicket: &models.CreateTicketParams{System: "jira", Project: "SEC", Priority: "high"}},
			},
			RunAutomatically:  true,
			RequireApproval:   true,
			MaxConcurrentRuns: 1,
			TimeoutSeconds:    300,
		},
		{
			Name:        "Triage new case",
			Description: "Standard intake steps for every freshly opened case.",
			TriggerType: "case_created",
			Actions: []models.Action{
				{Type: models.ActionNotify, Name: "announce case", Notify: &models.NotifyParams{Channel: "log", Message: "New case opened"}},
				{Type: models.ActionCreateTicket, Name: "open tracking ticket", CreateTicket: &models.CreateTicketParams{System: "jira", Project: "SOC"}},
			},
			RunAutomatically:  true,
			MaxConcurrentRuns: 2,
			TimeoutSeconds:    60,
		},
	}

	for _, req := range playbooks {
		pb, err := api.CreatePlaybook(req)
		if err != nil {
			return fmt.Errorf("failed to create playbook %q: %w", req.Name, err)
		}
		if _, err := api.EnablePlaybook(pb.ID); err != nil {
			return fmt.Errorf("failed to enable playbook %q: %w", pb.Name, err)
		}
		output.Info("Created playbook %q (%s)", pb.Name, pb.ID)
	}
	output.Success("Created %d playbooks", len(playbooks))
	return nil
}
