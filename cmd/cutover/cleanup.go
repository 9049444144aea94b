package main

import (
	"github.com/spf13/cobra"

	"github.com/cloudshift/cutover/pkg/orchestrator"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Scale the inactive color down to zero",
	Long: `Cleanup releases the warm standby left behind by a deploy, scaling
the inactive color to zero instances. Live traffic is untouched; the
only cost is that the next rollback needs a scale-up first.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Scale the active color down to zero, taking the environment offline",
	Long: `Shutdown scales the ACTIVE color to zero. The environment serves no
traffic afterwards, so the command always asks for confirmation unless
--skip-confirmation is passed.`,
	Args: cobra.NoArgs,
	RunE: runShutdown,
}

func init() {
	shutdownCmd.Flags().Bool("skip-confirmation", false, "Suppress the offline confirmation prompt")

	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(shutdownCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx, cancel := orchestrator.WithInterrupt(cmd.Context())
	defer cancel()

	rt, cleanup, err := setup(ctx, false, "")
	if err != nil {
		return err
	}
	defer cleanup()

	return rt.orch.Cleanup(ctx, rt.env)
}

func runShutdown(cmd *cobra.Command, args []string) error {
	skipConfirm, _ := cmd.Flags().GetBool("skip-confirmation")

	ctx, cancel := orchestrator.WithInterrupt(cmd.Context())
	defer cancel()

	rt, cleanup, err := setup(ctx, false, "")
	if err != nil {
		return err
	}
	defer cleanup()

	return rt.orch.Shutdown(ctx, rt.env, orchestrator.ShutdownOptions{
		SkipConfirmation: skipConfirm,
	})
}
