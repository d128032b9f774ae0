package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"dwpipe/internal/analytics"
	"dwpipe/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run sample reporting queries over the star schema",
	Long: `Run read-only aggregate queries over the completed dimensional model:
staging row counts, the most played song and the most active location.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prov, err := newProvisioner(ctx, cfg)
	if err != nil {
		return err
	}

	service, err := connectWarehouse(ctx, cfg, prov)
	if err != nil {
		return err
	}
	defer service.Close()

	ui.ShowHeader("Warehouse report")
	return analytics.Report(ctx, service, os.Stdout)
}
