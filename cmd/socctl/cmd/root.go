package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vantor-systems/vantor-soc/cmd/socctl/internal/client"
	"github.com/vantor-systems/vantor-soc/cmd/socctl/internal/output"
)

var rootCmd = &cobra.Command{
	Use:   "socctl",
	Short: "Vantor SOC command-line interface",
	Long: `socctl is the command-line interface for the Vantor SOC service.

Triage alerts, manage cases and playbooks, drive executions through the
approval gate, and seed realistic test data against a running instance.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("api-url", envOr("SOC_API_URL", "http://localhost:8090"), "base URL of the SOC API")
	rootCmd.PersistentFlags().String("actor", envOr("SOC_ACTOR", "socctl"), "actor identity sent as X-Actor-ID")
	rootCmd.PersistentFlags().String("tenant", envOr("SOC_TENANT", "default"), "tenant sent as X-Tenant-ID")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	cobra.OnInitialize(func() {
		if noColor, err := rootCmd.PersistentFlags().GetBool("no-color"); err == nil && noColor {
			output.NoColor = true
		}
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// apiClient builds a client from the persistent identity flags.
func apiClient(cmd *cobra.Command) *client.Client {
	apiURL, _ := cmd.Flags().GetString("api-url")
	actor, _ := cmd.Flags().GetString("actor")
	tenant, _ := cmd.Flags().GetString("tenant")
	return client.New(apiURL, actor, tenant)
}
