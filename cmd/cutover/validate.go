package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the environment is consistent without changing it",
	Long: `Validate runs read-only checks: the persisted deployment state is
readable, both colors answer capacity and health probes, and the live
forwarding rule matches the recorded one. It also flags capacity
protection checkpoints abandoned by a crashed run.

With --release-stale, abandoned checkpoints older than the staleness
window have their original capacity bounds restored and are cleared.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("release-stale", false, "Restore bounds for and clear stale protection checkpoints")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	releaseStale, _ := cmd.Flags().GetBool("release-stale")

	ctx := cmd.Context()
	rt, cleanup, err := setup(ctx, false, "")
	if err != nil {
		return err
	}
	defer cleanup()

	findings, verr := rt.orch.Validate(ctx, rt.env)
	for _, f := range findings {
		fmt.Printf("[%s] %s\n", f.Severity, f.Message)
	}
	if len(findings) == 0 {
		fmt.Println("All checks passed.")
	}

	if releaseStale {
		released, rerr := rt.orch.ReleaseStale(ctx, rt.env)
		if rerr != nil {
			return rerr
		}
		fmt.Printf("Released %d stale protection checkpoint(s).\n", released)
	}

	return verr
}
