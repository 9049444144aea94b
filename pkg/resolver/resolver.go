// Package resolver determines which color of an environment is currently
// active. The persisted deployment state is the single source of truth; the
// live forwarding rule is a verifiable cross-check, never a second store.
package resolver

import (
	"context"
	"fmt"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/types"
)

// Resolution is the outcome of resolving an environment's color state.
type Resolution struct {
	State    *types.DeploymentState
	Active   types.Color
	Inactive types.Color
}

// Resolve reads the persisted state and cross-checks it against the live
// forwarding rule. Missing or corrupt state fails with StateUnavailable:
// guessing the wrong active color risks double-switching live traffic, so
// there is no silent default. A disagreement between state and live routing
// fails with StateInconsistent and is never repaired here.
func Resolve(ctx context.Context, gw gateway.Gateway, env *types.Environment) (*Resolution, error) {
	st, err := gw.ReadState(ctx, env.StatePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrStateUnavailable, err)
	}

	// The recorded target ref must belong to the recorded color.
	owned := env.Group(st.ActiveColor).TargetGroup
	if st.ActiveTargetRef != owned {
		return nil, fmt.Errorf("%w: state names %s but records target %s (expected %s)",
			faults.ErrStateInconsistent, st.ActiveColor, st.ActiveTargetRef, owned)
	}

	// The live rule must agree with the record.
	live, err := gw.GetRule(ctx, env.RuleRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read forwarding rule: %w", err)
	}
	if live != st.ActiveTargetRef {
		return nil, fmt.Errorf("%w: rule forwards to %s but state records %s",
			faults.ErrStateInconsistent, live, st.ActiveTargetRef)
	}

	return &Resolution{
		State:    st,
		Active:   st.ActiveColor,
		Inactive: st.ActiveColor.Other(),
	}, nil
}
