package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cloudshift/cutover/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which color is live and how healthy each side is",
	Long: `Status reports the active color, per-color capacity and both health
signals. With --detailed it also lists the most recent traffic switches
recorded locally.

Examples:
  # Quick overview
  cutover status -e staging

  # Include the local switch journal, as YAML
  cutover status -e staging --detailed -o yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("detailed", false, "Include recent traffic switches")
	statusCmd.Flags().StringP("output", "o", "table", "Output format: table or yaml")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	detailed, _ := cmd.Flags().GetBool("detailed")
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "yaml" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	ctx := cmd.Context()
	rt, cleanup, err := setup(ctx, false, "")
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := rt.orch.Status(ctx, rt.env, detailed)
	if err != nil {
		return err
	}

	if output == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(st)
	}

	printStatusTable(st)
	return nil
}

func printStatusTable(st *types.EnvironmentStatus) {
	fmt.Printf("Environment: %s\n", st.Environment)
	fmt.Printf("Active:      %s\n\n", st.ActiveColor)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLOR\tROLE\tDESIRED\tMIN\tMAX\tFLEET\tROUTING")
	for _, c := range st.Colors {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d/%d\t%d/%d\n",
			c.Color, c.Role,
			c.Capacity.Desired, c.Capacity.Min, c.Capacity.Max,
			c.FleetHealthy, c.FleetTotal,
			c.RouteHealthy, c.RouteTotal,
		)
	}
	w.Flush()

	if len(st.RecentSwitches) > 0 {
		fmt.Println("\nRecent switches:")
		for _, s := range st.RecentSwitches {
			fmt.Printf("  %s  %s -> %s", s.SwitchedAt.Format("2006-01-02 15:04:05"), s.From, s.To)
			if s.Version != "" {
				fmt.Printf("  (%s)", s.Version)
			}
			fmt.Println()
		}
	}
}
