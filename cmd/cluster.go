package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dwpipe/internal/ui"
)

var clusterDownYes bool

var clusterUpCmd = &cobra.Command{
	Use:   "cluster-up",
	Short: "Provision the Redshift cluster",
	Long: `Create the service role and security group, spin up the Redshift cluster,
wait for it to become available and print the connection string. Existing
resources with the configured names are reused with a warning; any other
provisioning failure is fatal. There is no retry.`,
	RunE: runClusterUp,
}

var clusterDownCmd = &cobra.Command{
	Use:   "cluster-down",
	Short: "Delete the Redshift cluster and its resources",
	Long: `Shut down the cluster without a final snapshot, then delete the security
group and the service role. Asks for confirmation unless --yes is given.`,
	RunE: runClusterDown,
}

func init() {
	rootCmd.AddCommand(clusterUpCmd)
	rootCmd.AddCommand(clusterDownCmd)
	clusterDownCmd.Flags().BoolVarP(&clusterDownYes, "yes", "y", false,
		"skip the confirmation prompt")
}

func runClusterUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prov, err := newProvisioner(ctx, cfg)
	if err != nil {
		return err
	}

	ui.ShowHeader("Cluster provisioning")

	ui.ShowStep("ensure IAM role")
	roleARN, err := prov.EnsureRole(ctx)
	if err != nil {
		return err
	}

	ui.ShowStep("ensure security group")
	groupID, err := prov.EnsureSecurityGroup(ctx)
	if err != nil {
		return err
	}

	ui.ShowStep(fmt.Sprintf("create cluster %s", cfg.Redshift.ClusterIdentifier))
	if err := prov.CreateCluster(ctx, roleARN, groupID); err != nil {
		return err
	}

	spinner := ui.NewSpinner("waiting for the cluster to become available")
	spinner.Start()
	if err := prov.WaitAvailable(ctx); err != nil {
		spinner.Stop(false, "cluster did not become available")
		return err
	}
	spinner.Stop(true, "cluster available")

	endpoint, err := prov.Endpoint(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	color.New(color.FgGreen, color.Bold).Println(cfg.ConnectionString(endpoint))
	return nil
}

func runClusterDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !clusterDownYes {
		ok, err := ui.Confirm(fmt.Sprintf(
			"Delete cluster %q and its role and security group?", cfg.Redshift.ClusterIdentifier))
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

	ui.ShowHeader("Cluster teardown")

	ui.ShowStep(fmt.Sprintf("delete cluster %s", cfg.Redshift.ClusterIdentifier))
	if err := prov.DeleteCluster(ctx); err != nil {
		return err
	}

	ui.ShowStep("delete security group")
	if err := prov.DeleteSecurityGroup(ctx); err != nil {
		return err
	}

	ui.ShowStep("delete IAM role")
	if err := prov.DeleteRole(ctx); err != nil {
		return err
	}

	ui.ShowSuccess("Cluster resources deleted")
	return nil
}
