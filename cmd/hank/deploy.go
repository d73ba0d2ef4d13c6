package main

import (
	"fmt"

	"github.com/rgeorge2/hank/pkg/assigner"
	"github.com/rgeorge2/hank/pkg/deploy"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Declare a new version of a domain",
	Long: `Set the version a domain group declares for one domain. Running
conductors pick the change up and roll it through every ring group that
serves the domain group.

Versions only move forward; use --force to roll back.

Examples:
  hank deploy --domain-group search --domain users --version 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domainGroup, _ := cmd.Flags().GetString("domain-group")
		domain, _ := cmd.Flags().GetString("domain")
		version, _ := cmd.Flags().GetInt("version")
		force, _ := cmd.Flags().GetBool("force")

		mgr, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		d := deploy.NewDeployer(mgr, assigner.NewModAssigner())
		if err := d.SetDomainVersion(domainGroup, domain, version, force); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s/%s set to version %d\n", domainGroup, domain, version)
		return nil
	},
}

func init() {
	deployCmd.Flags().String("domain-group", "", "Domain group (required)")
	deployCmd.Flags().String("domain", "", "Domain (required)")
	deployCmd.Flags().Int("version", 0, "Version to deploy (required)")
	deployCmd.Flags().Bool("force", false, "Allow lowering the version")
	_ = deployCmd.MarkFlagRequired("domain-group")
	_ = deployCmd.MarkFlagRequired("domain")
	_ = deployCmd.MarkFlagRequired("version")

	rootCmd.AddCommand(deployCmd)
}
