package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cloudshift/cutover/pkg/orchestrator"
	"github.com/cloudshift/cutover/pkg/types"
)

var switchCmd = &cobra.Command{
	Use:   "switch <blue|green>",
	Short: "Move live traffic to the given color",
	Long: `Switch moves live traffic to the named color without scaling
anything. The target must read healthy on both signals unless --force
asserts readiness on the operator's authority.

Examples:
  # Point traffic at green
  cutover switch green -e staging

  # Force the switch despite an unanswered health read
  cutover switch green -e staging --force`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Move traffic back to the previously active color",
	Long: `Rollback switches traffic to whichever color is not currently
active. After a deploy the old color is still warm, so a rollback is a
pure traffic move with no scaling and no health wait beyond a single
positive read.`,
	Args: cobra.NoArgs,
	RunE: runRollback,
}

func init() {
	for _, c := range []*cobra.Command{switchCmd, rollbackCmd} {
		c.Flags().Bool("skip-confirmation", false, "Suppress interactive prompts")
		c.Flags().Bool("force", false, "Skip the positive health read on the target")
		c.Flags().Bool("dry-run", false, "Run against a seeded copy of live state and print the plan")
	}

	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(rollbackCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	target, err := types.ParseColor(args[0])
	if err != nil {
		return err
	}
	return runTrafficMove(cmd, func(ctx context.Context, rt *runtime, opts orchestrator.SwitchOptions) error {
		return rt.orch.Switch(ctx, rt.env, target, opts)
	})
}

func runRollback(cmd *cobra.Command, args []string) error {
	return runTrafficMove(cmd, func(ctx context.Context, rt *runtime, opts orchestrator.SwitchOptions) error {
		return rt.orch.Rollback(ctx, rt.env, opts)
	})
}

func runTrafficMove(cmd *cobra.Command, move func(context.Context, *runtime, orchestrator.SwitchOptions) error) error {
	skipConfirm, _ := cmd.Flags().GetBool("skip-confirmation")
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, cancel := orchestrator.WithInterrupt(cmd.Context())
	defer cancel()

	rt, cleanup, err := setup(ctx, dryRun, "")
	if err != nil {
		return err
	}
	defer cleanup()

	err = move(ctx, rt, orchestrator.SwitchOptions{
		SkipConfirmation: skipConfirm,
		Force:            force,
	})
	if dryRun {
		rt.printPlan()
	}
	return err
}
