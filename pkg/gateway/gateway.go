package gateway

import (
	"context"

	"github.com/cloudshift/cutover/pkg/types"
)

// CapacityAPI reads and mutates scaling-group capacity.
type CapacityAPI interface {
	// GroupCapacity returns the current desired/min/max of a scaling group.
	GroupCapacity(ctx context.Context, group string) (types.GroupCapacity, error)

	// SetBounds updates the min/max bounds of a scaling group.
	SetBounds(ctx context.Context, group string, min, max int32) error

	// SetDesired updates the desired capacity of a scaling group. The
	// version identifier is opaque and passed through to the scaling
	// request; empty means "keep the group's current version".
	SetDesired(ctx context.Context, group string, n int32, version string) error
}

// HealthAPI reads the two independent health signals for a color group.
type HealthAPI interface {
	// FleetHealth returns how many instances the scaling layer considers
	// live, and the total instance count.
	FleetHealth(ctx context.Context, group string) (healthy, total int32, err error)

	// RouteHealth returns how many targets are passing the routable
	// group's health probe, and the total registered target count.
	RouteHealth(ctx context.Context, targetGroup string) (healthy, total int32, err error)
}

// RoutingAPI reads and mutates the forwarding rule.
type RoutingAPI interface {
	// GetRule returns the routable-group reference the rule currently
	// forwards to.
	GetRule(ctx context.Context, ruleRef string) (targetRef string, err error)

	// SetRule points the rule at the given routable group. The update is
	// all-or-nothing: on error no partial traffic change is assumed.
	SetRule(ctx context.Context, ruleRef, targetRef string) error
}

// StateStore reads and writes the persisted deployment state.
type StateStore interface {
	// ReadState reads the state pair stored under the environment's
	// prefix. Returns an error when either entry is missing or unreadable.
	ReadState(ctx context.Context, prefix string) (*types.DeploymentState, error)

	// WriteState persists both entries of the state pair.
	WriteState(ctx context.Context, prefix string, st *types.DeploymentState) error
}

// DiscoveryStore reads and copies capability-discovery data for versions.
type DiscoveryStore interface {
	DiscoveryExists(ctx context.Context, prefix, version string) (bool, error)
	CopyDiscovery(ctx context.Context, fromPrefix, toPrefix, version string) error
}

// Gateway is the full control-plane facade the orchestrator drives.
// Provisioning of the underlying resources is out of scope; everything
// behind this interface is assumed to already exist.
type Gateway interface {
	CapacityAPI
	HealthAPI
	RoutingAPI
	StateStore
	DiscoveryStore
}
