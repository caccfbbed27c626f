package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vantor-systems/vantor-soc/cmd/socctl/internal/output"
)

var playbooksCmd = &cobra.Command{
	Use:   "playbooks",
	Short: "Response playbooks",
	Long:  "View, enable, and run response playbooks",
}

var playbooksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List playbooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")

		resp, err := apiClient(cmd).ListPlaybooks(page, limit, map[string]string{"status": status})
		if err != nil {
			return fmt.Errorf("failed to list playbooks: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp.Playbooks)
		}

		if len(resp.Playbooks) == 0 {
			output.Info("No playbooks found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Name", "Status", "Trigger", "Actions", "Auto", "Approval", "Runs"})
		for _, p := range resp.Playbooks {
			table.AddRow([]string{
				p.ID,
				p.Name,
				p.Status,
				p.TriggerType,
				fmt.Sprintf("%d", len(p.Actions)),
				fmt.Sprintf("%t", p.RunAutomatically),
				fmt.Sprintf("%t", p.RequireApproval),
				fmt.Sprintf("%d", p.TotalRuns),
			})
		}
		table.Render()
		return nil
	},
}

var playbooksEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a playbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pb, err := apiClient(cmd).EnablePlaybook(args[0])
		if err != nil {
			return fmt.Errorf("failed to enable playbook: %w", err)
		}
		output.Success("Playbook %q enabled (version %d)", pb.Name, pb.Version)
		return nil
	},
}

var playbooksDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a playbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pb, err := apiClient(cmd).DisablePlaybook(args[0])
		if err != nil {
			return fmt.Errorf("failed to disable playbook: %w", err)
		}
		output.Success("Playbook %q disabled", pb.Name)
		return nil
	},
}

var playbooksRunCmd = &cobra.Command{
	Use:   "run [id]",
	Short: "Request a manual playbook execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alertID, _ := cmd.Flags().GetString("alert")
		caseID, _ := cmd.Flags().GetString("case")
		reason, _ := cmd.Flags().GetString("reason")

		ex, err := apiClient(cmd).RunPlaybook(args[0], alertID, caseID, reason)
		if err != nil {
			return fmt.Errorf("failed to run playbook: %w", err)
		}

		output.Success("Execution %s accepted", ex.ID)
		output.Info("Status: %s", ex.Status)
		if ex.Status == "pending" {
			output.Warn("Execution awaits approval: socctl executions approve %s", ex.ID)
		}
		return nil
	},
}

var executionsCmd = &cobra.Command{
	Use:   "executions",
	Short: "Playbook executions",
	Long:  "View executions and drive them through the approval gate",
}

var executionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		playbookID, _ := cmd.Flags().GetString("playbook")

		resp, err := apiClient(cmd).ListExecutions(page, limit, map[string]string{
			"status":      status,
			"playbook_id": playbookID,
		})
		if err != nil {
			return fmt.Errorf("failed to list executions: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(resp.Executions)
		}

		if len(resp.Executions) == 0 {
			output.Info("No executions found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Playbook", "Status", "Trigger", "By", "Started"})
		for _, ex := range resp.Executions {
			started := ""
			if ex.StartedAt != nil {
				started = ex.StartedAt.Format("2006-01-02 15:04")
			}
			table.AddRow([]string{
				ex.ID,
				ex.PlaybookID,
				ex.Status,
				ex.TriggerReason,
				ex.ExecutedBy,
				started,
			})
		}
		table.Render()
		return nil
	},
}

var executionsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get execution details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, err := apiClient(cmd).GetExecution(args[0])
		if err != nil {
			return fmt.Errorf("failed to get execution: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(ex)
		}

		output.Info("Execution: %s", ex.ID)
		output.Info("Playbook: %s", ex.PlaybookID)
		output.Info("Status: %s", ex.Status)
		output.Info("Trigger: %s", ex.TriggerReason)
		output.Info("Executed By: %s", ex.ExecutedBy)
		if ex.StartedAt != nil {
			output.Info("Started: %s", ex.StartedAt.Format("2006-01-02 15:04:05"))
		}
		if ex.CompletedAt != nil {
			output.Info("Completed: %s", ex.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		if ex.ErrorMessage != "" {
			output.Warn("Error: %s", ex.ErrorMessage)
		}
		if ex.RejectionReason != "" {
			output.Warn("Rejected: %s", ex.RejectionReason)
		}

		if len(ex.ActionResults) > 0 {
			fmt.Println()
			table := output.NewTable([]string{"#", "Action", "Outcome", "Detail"})
			for i, res := range ex.ActionResults {
				table.AddRow([]string{
					fmt.Sprintf("%d", i+1),
					string(res.ActionType),
					res.Outcome,
					res.Detail,
				})
			}
			table.Render()
		}
		return nil
	},
}

var executionsApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve a pending execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, err := apiClient(cmd).ApproveExecution(args[0])
		if err != nil {
			return fmt.Errorf("failed to approve execution: %w", err)
		}
		output.Success("Execution %s approved, now %s", ex.ID, ex.Status)
		return nil
	},
}

var executionsRejectCmd = &cobra.Command{
	Use:   "reject [id]",
	Short: "Reject a pending execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return fmt.Errorf("a rejection reason is required")
		}

		ex, err := apiClient(cmd).RejectExecution(args[0], reason)
		if err != nil {
			return fmt.Errorf("failed to reject execution: %w", err)
		}
		output.Success("Execution %s rejected", ex.ID)
		return nil
	},
}

var executionsCancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a pending or running execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, err := apiClient(cmd).CancelExecution(args[0])
		if err != nil {
			return fmt.Errorf("failed to cancel execution: %w", err)
		}
		output.Success("Execution %s cancellation requested (status %s)", ex.ID, ex.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playbooksCmd)
	playbooksCmd.AddCommand(playbooksListCmd)
	playbooksCmd.AddCommand(playbooksEnableCmd)
	playbooksCmd.AddCommand(playbooksDisableCmd)
	playbooksCmd.AddCommand(playbooksRunCmd)

	rootCmd.AddCommand(executionsCmd)
	executionsCmd.AddCommand(executionsListCmd)
	executionsCmd.AddCommand(executionsGetCmd)
	executionsCmd.AddCommand(executionsApproveCmd)
	executionsCmd.AddCommand(executionsRejectCmd)
	executionsCmd.AddCommand(executionsCancelCmd)

	playbooksListCmd.Flags().IntP("page", "p", 1, "Page number")
	playbooksListCmd.Flags().IntP("limit", "l", 20, "Results per page")
	playbooksListCmd.Flags().String("status", "", "Filter by status (draft, active, disabled, archived)")

	playbooksRunCmd.Flags().String("alert", "", "Alert ID to run the playbook against")
	playbooksRunCmd.Flags().String("case", "", "Case ID to run the playbook against")
	playbooksRunCmd.Flags().StringP("reason", "r", "", "Reason recorded on the execution")

	executionsListCmd.Flags().IntP("page", "p", 1, "Page number")
	executionsListCmd.Flags().IntP("limit", "l", 20, "Results per page")
	executionsListCmd.Flags().String("status", "", "Filter by status (pending, running, completed, failed, cancelled, partial)")
	executionsListCmd.Flags().String("playbook", "", "Filter by playbook ID")

	executionsRejectCmd.Flags().StringP("reason", "r", "", "Rejection reason (required)")
}
