package cmd

import (
	"github.com/spf13/cobra"

	"dwpipe/internal/transform"
	"dwpipe/internal/ui"
)

var etlForce bool

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Transform the staged rows into the star schema",
	Long: `Run the five insert-as-select transformations that derive the songplays
fact table and the users, songs, artists and times dimensions from the
populated staging tables. Each statement commits independently and a failure
stops the run without rolling back earlier steps.

A fresh run requires empty fact and dimension tables: the transform is not
idempotent, and re-running against a populated fact table appends duplicate
rows. The command refuses in that case unless --force is given.`,
	RunE: runETL,
}

func init() {
	rootCmd.AddCommand(etlCmd)
	etlCmd.Flags().BoolVar(&etlForce, "force", false,
		"run even if the fact table already holds rows (appends duplicates)")
}

func runETL(cmd *cobra.Command, args []string) error {
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

	ui.ShowHeader("Transform")
	engine := transform.NewEngine(service)
	engine.Force = etlForce

	if err := engine.Run(ctx); err != nil {
		return err
	}

	ui.ShowSuccess("Star schema derived from staging")
	return nil
}
