package cmd

import (
	"github.com/spf13/cobra"

	"dwpipe/internal/schema"
	"dwpipe/internal/ui"
)

var createTablesYes bool

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Drop and recreate the staging and star-schema tables",
	Long: `Reset the warehouse schema: drop and recreate the two staging tables and
the five star-schema tables in a fixed order. This destroys all data in all
seven tables. Safe to run from any starting state, including one where the
tables do not exist yet.`,
	RunE: runCreateTables,
}

func init() {
	rootCmd.AddCommand(createTablesCmd)
	createTablesCmd.Flags().BoolVarP(&createTablesYes, "yes", "y", false,
		"skip the confirmation prompt")
}

func runCreateTables(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !createTablesYes {
		ok, err := ui.Confirm("Reset the schema? This destroys all data in all seven tables.")
		if err != nil {
			return err
		}
		if !ok {
			ui.ShowInfo("Aborted")
			return nil
		}
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

	ui.ShowHeader("Schema reset")
	if err := schema.Reset(ctx, service); err != nil {
		return err
	}

	ui.ShowSuccess("All seven tables dropped and recreated")
	return nil
}
