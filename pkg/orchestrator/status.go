package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/types"
)

// Status reports both colors' capacity and health. The two colors are read
// concurrently; status never mutates anything. With detailed set, recent
// switch journal entries are included.
func (o *Orchestrator) Status(ctx context.Context, env *types.Environment, detailed bool) (*types.EnvironmentStatus, error) {
	st, serr := o.gw.ReadState(ctx, env.StatePrefix)
	if serr != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrStateUnavailable, serr)
	}

	out := &types.EnvironmentStatus{
		Environment: env.Name,
		ActiveColor: st.ActiveColor,
		Colors:      make([]types.ColorStatus, 2),
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, color := range []types.Color{types.ColorBlue, types.ColorGreen} {
		wg.Add(1)
		go func(i int, color types.Color) {
			defer wg.Done()
			cs, err := o.colorStatus(ctx, env, color, st.ActiveColor)
			if err != nil {
				errs[i] = err
				return
			}
			out.Colors[i] = cs
		}(i, color)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if detailed && o.store != nil {
		recent, err := o.store.RecentSwitches(env.Name, 5)
		if err == nil {
			for _, rec := range recent {
				out.RecentSwitches = append(out.RecentSwitches, *rec)
			}
		}
	}
	return out, nil
}

func (o *Orchestrator) colorStatus(ctx context.Context, env *types.Environment, color, active types.Color) (types.ColorStatus, error) {
	group := env.Group(color)
	cs := types.ColorStatus{Color: color, Role: "inactive"}
	if color == active {
		cs.Role = "active"
	}

	cap, err := o.gw.GroupCapacity(ctx, group.ScalingGroup)
	if err != nil {
		return cs, err
	}
	cs.Capacity = cap

	cs.FleetHealthy, cs.FleetTotal, err = o.gw.FleetHealth(ctx, group.ScalingGroup)
	if err != nil {
		return cs, err
	}
	cs.RouteHealthy, cs.RouteTotal, err = o.gw.RouteHealth(ctx, group.TargetGroup)
	if err != nil {
		return cs, err
	}
	return cs, nil
}
