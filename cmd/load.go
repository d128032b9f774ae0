package cmd

import (
	"github.com/spf13/cobra"

	"dwpipe/internal/staging"
	"dwpipe/internal/ui"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk load the staging tables from S3",
	Long: `Run the two COPY statements that populate the staging tables from the raw
JSON files in S3: event logs with the caller-supplied jsonpaths mapping,
song-catalog records with auto-detected shape. Each COPY succeeds or raises
as a whole; this command appends to whatever the staging tables hold, so run
create-tables first for a fresh load.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prov, err := newProvisioner(ctx, cfg)
	if err != nil {
		return err
	}

	roleARN, err := prov.RoleARN(ctx)
	if err != nil {
		return err
	}

	service, err := connectWarehouse(ctx, cfg, prov)
	if err != nil {
		return err
	}
	defer service.Close()

	loader := staging.NewLoader(cfg, roleARN, service)
	steps, err := loader.Steps()
	if err != nil {
		return err
	}

	ui.ShowHeader("Staging load")
	for _, step := range steps {
		ui.ShowStep(step.Name)
		if err := service.ExecStep(ctx, step); err != nil {
			return err
		}
	}

	ui.ShowSuccess("Staging tables loaded from S3")
	return nil
}
