// Package switcher performs the atomic traffic switch: point the
// forwarding rule at the target color's routable group, then persist the
// new deployment state. Exactly those two effects, in that order, with no
// fallible step in between.
package switcher

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/storage"
	"github.com/cloudshift/cutover/pkg/types"
)

// Switcher moves live traffic between colors and journals each switch.
type Switcher struct {
	gw      gateway.Gateway
	journal storage.Store // may be nil
}

// New creates a Switcher. The journal store is optional.
func New(gw gateway.Gateway, journal storage.Store) *Switcher {
	return &Switcher{gw: gw, journal: journal}
}

// SwitchTo points the environment's forwarding rule at the target color and
// persists the new state pair.
//
// If the rule update is rejected the operation fails with SwitchFailed and
// no partial traffic change is assumed. If the state write fails after the
// rule moved, traffic is live on the new color while the record still names
// the old one: that is surfaced as StatePersistenceLag for a human to
// reconcile. Reverting traffic on an uncertain write failure would be
// riskier than a stale record, so no automatic rollback of the rule is
// attempted.
func (s *Switcher) SwitchTo(ctx context.Context, env *types.Environment, target types.Color, version, operationID string) error {
	group := env.Group(target)
	logger := log.WithComponent("switcher")

	if err := s.gw.SetRule(ctx, env.RuleRef, group.TargetGroup); err != nil {
		return fmt.Errorf("%w: %v", faults.ErrSwitchFailed, err)
	}
	logger.Info().
		Str("environment", env.Name).
		Str("color", string(target)).
		Msg("forwarding rule updated")

	st := &types.DeploymentState{
		ActiveColor:     target,
		ActiveTargetRef: group.TargetGroup,
	}
	if err := s.gw.WriteState(ctx, env.StatePrefix, st); err != nil {
		return fmt.Errorf("%w: %v", faults.ErrStatePersistenceLag, err)
	}

	if s.journal != nil {
		rec := &types.SwitchRecord{
			OperationID: operationID,
			Environment: env.Name,
			From:        target.Other(),
			To:          target,
			Version:     version,
			SwitchedAt:  time.Now(),
		}
		if err := s.journal.AppendSwitch(rec); err != nil {
			// Journal is advisory; the switch itself is complete.
			logger.Warn().Err(err).Msg("failed to journal switch")
		}
	}

	logger.Info().
		Str("environment", env.Name).
		Str("color", string(target)).
		Msg("traffic switched")
	return nil
}
