package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudshift/cutover/pkg/discovery"
	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/metrics"
	"github.com/cloudshift/cutover/pkg/orchestrator"
	"github.com/cloudshift/cutover/pkg/storage"
	"github.com/cloudshift/cutover/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagConfig      string
	flagEnv         string
	flagMetricsAddr string
	flagLogJSON     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(faults.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "cutover",
	Short: "Cutover - zero-downtime blue/green fleet deployments",
	Long: `Cutover flips live traffic between two identically provisioned
halves of an environment. It protects capacity bounds during the
window, gates the switch on a dual-signal health quorum, and always
restores bounds on abort, so traffic never points at unhealthy or
non-existent capacity.

The fleet resources themselves are provisioned elsewhere; cutover only
reads health, adjusts capacity, and moves the forwarding rule.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Cutover version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: cutover.yaml on the search path)")
	rootCmd.PersistentFlags().StringVarP(&flagEnv, "env", "e", "", "Target environment name (required)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address for the run")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit JSON log lines instead of console output")
}

// runtime is everything a command needs, wired once per invocation.
type runtime struct {
	cfg   *Config
	env   *types.Environment
	store storage.Store
	orch  *orchestrator.Orchestrator
	gw    gateway.Gateway
	mem   *gateway.MemoryGateway // non-nil for dry runs
}

// setup wires config, logging, gateway, store and orchestrator for one
// command invocation. dryRun swaps the live gateway for a seeded copy.
func setup(ctx context.Context, dryRun bool, version string) (*runtime, func(), error) {
	path := flagConfig
	if path == "" {
		path = os.Getenv("CUTOVER_CONFIG")
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON || flagLogJSON,
	})

	if flagEnv == "" {
		return nil, nil, fmt.Errorf("--env is required")
	}
	env, err := cfg.Environment(flagEnv)
	if err != nil {
		return nil, nil, err
	}

	live, err := gateway.NewAWSGateway(ctx, cfg.Region)
	if err != nil {
		return nil, nil, err
	}
	var gw gateway.Gateway = live

	var mem *gateway.MemoryGateway
	if dryRun {
		mem, err = gateway.SeedFromLive(ctx, live, env, version)
		if err != nil {
			return nil, nil, err
		}
		mem.AutoHealthy = true
		gw = mem
	}

	var store storage.Store
	var closeStore func()
	if !dryRun {
		bolt, berr := storage.NewBoltStore(cfg.DataDir)
		if berr != nil {
			return nil, nil, berr
		}
		store = bolt
		closeStore = func() { bolt.Close() }
	}

	var gate *discovery.Gate
	if env.DiscoverySource != "" {
		source, serr := cfg.Environment(env.DiscoverySource)
		if serr != nil {
			if closeStore != nil {
				closeStore()
			}
			return nil, nil, fmt.Errorf("discovery source: %w", serr)
		}
		gate = discovery.NewGate(gw, source)
	}

	confirm := orchestrator.NewConsoleConfirmer(os.Stdin, os.Stderr)
	orch := orchestrator.New(gw, store, gate, confirm)

	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if cfg.MetricsAddr != "" && !dryRun {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if herr := http.ListenAndServe(cfg.MetricsAddr, mux); herr != nil {
				log.Errorf("metrics listener failed", herr)
			}
		}()
	}

	cleanup := func() {
		if closeStore != nil {
			closeStore()
		}
	}
	return &runtime{cfg: cfg, env: env, store: store, orch: orch, gw: gw, mem: mem}, cleanup, nil
}

// printPlan reports the mutations a dry run would have issued.
func (rt *runtime) printPlan() {
	if rt.mem == nil {
		return
	}
	fmt.Println("Dry run; the following mutations would be issued:")
	if len(rt.mem.Mutations) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, m := range rt.mem.Mutations {
		fmt.Printf("  %s\n", m)
	}
}
