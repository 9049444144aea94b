package gateway

import (
	"context"
	"fmt"

	"github.com/cloudshift/cutover/pkg/types"
)

// SeedFromLive builds a MemoryGateway primed with an environment's current
// control-plane state, read through src. Dry runs execute the real state
// machine against the seeded copy and report the mutations that would have
// been issued.
func SeedFromLive(ctx context.Context, src Gateway, env *types.Environment, version string) (*MemoryGateway, error) {
	mem := NewMemoryGateway()

	for _, color := range []types.Color{types.ColorBlue, types.ColorGreen} {
		group := env.Group(color)
		cap, err := src.GroupCapacity(ctx, group.ScalingGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %s group: %w", color, err)
		}
		fleetHealthy, fleetTotal, err := src.FleetHealth(ctx, group.ScalingGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %s fleet health: %w", color, err)
		}
		mem.Groups[group.ScalingGroup] = &GroupState{
			Capacity:     cap,
			FleetHealthy: fleetHealthy,
			FleetTotal:   fleetTotal,
		}
		routeHealthy, routeTotal, err := src.RouteHealth(ctx, group.TargetGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %s routing health: %w", color, err)
		}
		mem.SetRouteHealth(group.TargetGroup, routeHealthy, routeTotal)
	}

	rule, err := src.GetRule(ctx, env.RuleRef)
	if err != nil {
		return nil, fmt.Errorf("failed to seed forwarding rule: %w", err)
	}
	mem.Rules[env.RuleRef] = rule

	st, err := src.ReadState(ctx, env.StatePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to seed deployment state: %w", err)
	}
	if werr := mem.WriteState(ctx, env.StatePrefix, st); werr != nil {
		return nil, werr
	}
	mem.Mutations = nil // seeding is not part of the plan

	if version != "" {
		exists, err := src.DiscoveryExists(ctx, env.StatePrefix, version)
		if err != nil {
			return nil, fmt.Errorf("failed to seed discovery data: %w", err)
		}
		mem.Discovery[env.StatePrefix+keyDiscovery+version] = exists
	}
	return mem, nil
}
