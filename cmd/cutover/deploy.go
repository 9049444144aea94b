package main

import (
	"github.com/spf13/cobra"

	"github.com/cloudshift/cutover/pkg/orchestrator"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [version]",
	Short: "Roll out a version on the inactive color and switch traffic to it",
	Long: `Deploy scales the inactive color up on the given version, waits for
both the fleet and routing health signals to reach quorum, then moves
live traffic over. The previous active color is left warm so a rollback
is a pure traffic switch.

Examples:
  # Deploy v2 to staging, mirroring the active group's size
  cutover deploy v2 -e staging

  # Deploy with an explicit target capacity
  cutover deploy v2 -e staging --capacity 4

  # Scale up and verify health without moving traffic
  cutover deploy v2 -e staging --skip-switch

  # Preview the mutations without touching anything
  cutover deploy v2 -e staging --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().Int32("capacity", 0, "Desired instance count for the target color (default: mirror active)")
	deployCmd.Flags().Bool("skip-confirmation", false, "Suppress interactive prompts")
	deployCmd.Flags().Bool("skip-switch", false, "Stop after health verification; leave the standby unswitched")
	deployCmd.Flags().Bool("dry-run", false, "Run against a seeded copy of live state and print the plan")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	// Without an explicit version the inactive group scales up on its
	// launch template's current version.
	var version string
	if len(args) > 0 {
		version = args[0]
	}
	capacity, _ := cmd.Flags().GetInt32("capacity")
	skipConfirm, _ := cmd.Flags().GetBool("skip-confirmation")
	skipSwitch, _ := cmd.Flags().GetBool("skip-switch")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, cancel := orchestrator.WithInterrupt(cmd.Context())
	defer cancel()

	rt, cleanup, err := setup(ctx, dryRun, version)
	if err != nil {
		return err
	}
	defer cleanup()

	err = rt.orch.Deploy(ctx, rt.env, orchestrator.DeployOptions{
		Version:          version,
		Capacity:         capacity,
		SkipConfirmation: skipConfirm,
		SkipSwitch:       skipSwitch,
	})
	if dryRun {
		rt.printPlan()
	}
	return err
}
