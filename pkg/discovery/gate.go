// Package discovery gates high-trust deployments on the existence of
// capability-discovery data for the version being deployed. A version
// without discovery data must not be exposed to the high-trust tier
// unattended; the only way forward is an interactive copy from a
// designated lower-trust environment.
package discovery

import (
	"context"
	"fmt"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/types"
)

// Gate checks discovery data before a deployment may scale anything.
type Gate struct {
	store gateway.DiscoveryStore

	// Source is the lower-trust environment discovery data may be copied
	// from, resolved from the target environment's configuration. Nil when
	// no source is configured.
	Source *types.Environment
}

// NewGate creates a Gate backed by the given discovery store.
func NewGate(store gateway.DiscoveryStore, source *types.Environment) *Gate {
	return &Gate{store: store, Source: source}
}

// Options controls how the gate may resolve missing discovery data.
type Options struct {
	// SkipConfirmation is the global confirmation suppression flag. It is
	// rejected outright when discovery data is absent: there is no
	// non-interactive path past the gate.
	SkipConfirmation bool

	// Confirm prompts the operator. Nil means the session is
	// non-interactive.
	Confirm func(prompt string) (bool, error)
}

// Check passes when the environment is not high-trust, or discovery data
// already exists for the version. Otherwise it offers an interactive copy
// from the source environment; absent that, the deployment fails with
// DiscoveryRequired before any capacity mutation has happened.
func (g *Gate) Check(ctx context.Context, env *types.Environment, version string, opts Options) error {
	if env.Tier != types.TierHighTrust {
		return nil
	}
	if version == "" {
		return fmt.Errorf("%w: deploys to %s must name an explicit version", faults.ErrDiscoveryRequired, env.Name)
	}

	exists, err := g.store.DiscoveryExists(ctx, env.StatePrefix, version)
	if err != nil {
		return fmt.Errorf("failed to check discovery data: %w", err)
	}
	if exists {
		return nil
	}

	if opts.SkipConfirmation {
		return fmt.Errorf("%w: version %s has no discovery data and confirmation suppression is not allowed past this gate",
			faults.ErrDiscoveryRequired, version)
	}
	if opts.Confirm == nil {
		return fmt.Errorf("%w: version %s has no discovery data", faults.ErrDiscoveryRequired, version)
	}
	if g.Source == nil {
		return fmt.Errorf("%w: version %s has no discovery data and no copy source is configured",
			faults.ErrDiscoveryRequired, version)
	}

	prompt := fmt.Sprintf("version %s has no discovery data in %s; copy it from %s?",
		version, env.Name, g.Source.Name)
	ok, err := opts.Confirm(prompt)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: declined discovery copy", faults.ErrUserAborted)
	}

	if err := g.store.CopyDiscovery(ctx, g.Source.StatePrefix, env.StatePrefix, version); err != nil {
		// The copy failing fails the whole deployment.
		return fmt.Errorf("%w: copy from %s failed: %v", faults.ErrDiscoveryRequired, g.Source.Name, err)
	}
	logger := log.WithComponent("discovery")
	logger.Info().
		Str("version", version).
		Str("from", g.Source.Name).
		Str("to", env.Name).
		Msg("discovery data copied")
	return nil
}
