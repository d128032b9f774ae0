package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dwpipe/internal/aws"
	"dwpipe/internal/config"
	"dwpipe/internal/ui"
	"dwpipe/internal/warehouse"
	"dwpipe/pkg/models"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "dwpipe",
		Short: "Provision and load a Redshift star-schema warehouse",
		Long: `dwpipe runs a batch ETL pipeline against an Amazon Redshift cluster:
it provisions the cluster, resets the staging and star-schema tables, bulk
loads raw JSON event and song-catalog data from S3, and transforms the staged
rows into a fact table and four dimensions for analytical queries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		fmt.Sprintf("path to the configuration file (default %q)", config.DefaultConfigFile))
}

// loadConfig reads the configuration file named by --config
func loadConfig() (*models.Config, error) {
	return config.Load(cfgFile)
}

// connectWarehouse resolves the live cluster endpoint and opens the single
// warehouse connection used for the rest of the command.
func connectWarehouse(ctx context.Context, cfg *models.Config, prov *aws.Provisioner) (*warehouse.Service, error) {
	endpoint, err := prov.Endpoint(ctx)
	if err != nil {
		return nil, err
	}

	service := warehouse.NewService(cfg.ConnectionString(endpoint), 5*time.Minute)
	if err := service.Connect(ctx); err != nil {
		return nil, err
	}
	return service, nil
}

// newProvisioner builds an AWS provisioner that reports warnings through the ui
func newProvisioner(ctx context.Context, cfg *models.Config) (*aws.Provisioner, error) {
	prov, err := aws.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	prov.Warnf = func(format string, args ...interface{}) {
		ui.ShowWarning(fmt.Sprintf(format, args...))
	}
	return prov, nil
}
