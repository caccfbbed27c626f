package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vantor-systems/vantor-soc/cmd/socctl/internal/output"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Alert triage",
	Long:  "View and triage security alerts",
}

var alertsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		severity, _ := cmd.Flags().GetString("severity")
		status, _ := cmd.Flags().GetString("status")
		source, _ := cmd.Flags().GetString("source")

		resp, err := apiClient(cmd).ListAlerts(page, limit, map[string]string{
			"severity": severity,
			"status":   status,
			"source":   source,
		})
		if err != nil {
			return fmt.Errorf("failed to list alerts: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp.Alerts)
		}

		if len(resp.Alerts) == 0 {
			output.Info("No alerts found")
			return nil
		}

		table := output.NewTable([]string{"Alert ID", "Title", "Severity", "Status", "Source", "Detected At"})
		for _, a := range resp.Alerts {
			table.AddRow([]string{
				a.AlertID,
				a.Title,
				a.Severity,
				a.Status,
				a.Source,
				a.DetectedAt.Format("2006-01-02 15:04"),
			})
		}
		table.Render()

		if resp.Pagination.Total > 0 {
			output.Info("\nShowing %d of %d total alerts", len(resp.Alerts), resp.Pagination.Total)
		}
		return nil
	},
}

var alertsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get alert details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alert, err := apiClient(cmd).GetAlert(args[0])
		if err != nil {
			return fmt.Errorf("failed to get alert: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(alert)
		}

		output.Info("Alert: %s (%s)", alert.AlertID, alert.ID)
		output.Info("Title: %s", alert.Title)
		output.Info("Severity: %s", alert.Severity)
		output.Info("Status: %s", alert.Status)
		output.Info("Source: %s", alert.Source)
		output.Info("Detected: %s", alert.DetectedAt.Format("2006-01-02 15:04:05"))
		if alert.RuleName != "" {
			output.Info("Rule: %s", alert.RuleName)
		}
		if alert.AssignedTo != nil {
			output.Info("Assigned To: %s", *alert.AssignedTo)
		}
		if alert.ResolvedAt != nil {
			output.Info("Resolved: %s", alert.ResolvedAt.Format("2006-01-02 15:04:05"))
		}
		if len(alert.MitreTechniques) > 0 {
			output.Info("MITRE Techniques: %v", alert.MitreTechniques)
		}
		if len(alert.AffectedEntities) > 0 {
			output.Info("Affected Entities: %v", alert.AffectedEntities)
		}
		return nil
	},
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Investigation cases",
	Long:  "View and manage investigation cases",
}

var casesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")

		resp, err := apiClient(cmd).ListCases(page, limit, map[string]string{"status": status})
		if err != nil {
			return fmt.Errorf("failed to list cases: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp.Cases)
		}

		if len(resp.Cases) == 0 {
			output.Info("No cases found")
			return nil
		}

		table := output.NewTable([]string{"Case", "Title", "Status", "Priority", "Alerts", "Opened"})
		for _, c := range resp.Cases {
			table.AddRow([]string{
				c.CaseNumber,
				c.Title,
				c.Status,
				c.Priority,
				fmt.Sprintf("%d", c.AlertCount),
				c.OpenedAt.Format("2006-01-02"),
			})
		}
		table.Render()

		if resp.Pagination.Total > 0 {
			output.Info("\nShowing %d of %d total cases", len(resp.Cases), resp.Pagination.Total)
		}
		return nil
	},
}

var casesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get case details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := apiClient(cmd).GetCase(args[0])
		if err != nil {
			return fmt.Errorf("failed to get case: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(cs)
		}

		output.Info("Case: %s (%s)", cs.CaseNumber, cs.ID)
		output.Info("Title: %s", cs.Title)
		output.Info("Status: %s", cs.Status)
		output.Info("Priority: %s", cs.Priority)
		output.Info("Opened: %s by %s", cs.OpenedAt.Format("2006-01-02 15:04:05"), cs.CreatedBy)
		if cs.AssigneeID != nil {
			output.Info("Assignee: %s", *cs.AssigneeID)
		}
		if cs.AssignedTeam != "" {
			output.Info("Assigned Team: %s", cs.AssignedTeam)
		}
		if cs.EscalatedTo != nil {
			output.Info("Escalated To: %s (%s)", *cs.EscalatedTo, cs.EscalationReason)
		}
		if cs.ResolvedAt != nil {
			output.Info("Resolved: %s", cs.ResolvedAt.Format("2006-01-02 15:04:05"))
			if cs.TimeToResolve != nil {
				output.Info("Time To Resolve: %ds", *cs.TimeToResolve)
			}
		}
		if cs.AlertCount > 0 {
			output.Info("Linked Alerts: %d", cs.AlertCount)
		}
		return nil
	},
}

var casesLinkCmd = &cobra.Command{
	Use:   "link [case-id] [alert-id]",
	Short: "Link an alert to a case",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).LinkAlert(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to link alert: %w", err)
		}
		output.Success("Alert %s linked to case %s", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsGetCmd)

	rootCmd.AddCommand(casesCmd)
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesGetCmd)
	casesCmd.AddCommand(casesLinkCmd)

	alertsListCmd.Flags().IntP("page", "p", 1, "Page number")
	alertsListCmd.Flags().IntP("limit", "l", 20, "Results per page")
	alertsListCmd.Flags().StringP("severity", "s", "", "Filter by severity")
	alertsListCmd.Flags().String("status", "", "Filter by status (new, assigned, in_progress, pending, resolved, closed, false_positive, escalated)")
	alertsListCmd.Flags().String("source", "", "Filter by source system")

	casesListCmd.Flags().IntP("page", "p", 1, "Page number")
	casesListCmd.Flags().IntP("limit", "l", 20, "Results per page")
	casesListCmd.Flags().String("status", "", "Filter by status (open, in_progress, pending_info, escalated, resolved, closed)")
}
