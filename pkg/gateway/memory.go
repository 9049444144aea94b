package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudshift/cutover/pkg/types"
)

// GroupState is the in-memory model of one scaling group.
type GroupState struct {
	Capacity     types.GroupCapacity
	Version      string
	FleetHealthy int32
	FleetTotal   int32
}

// MemoryGateway is an in-memory Gateway used by tests and dry runs. Fleet
// health follows desired capacity unless pinned by a test; routing health
// is keyed by target group and set explicitly.
type MemoryGateway struct {
	mu sync.Mutex

	Groups    map[string]*GroupState
	routes    map[string][2]int32 // targetGroup -> healthy, total
	Rules     map[string]string   // ruleRef -> targetRef
	Params    map[string]string
	Discovery map[string]bool // prefix+version -> exists

	// Mutations records every mutating call in order, for assertions on
	// sequencing and for dry-run plan output.
	Mutations []string

	// AutoHealthy makes both health signals track desired capacity, so a
	// dry run's health wait resolves immediately.
	AutoHealthy bool

	// Error injection points.
	FailSetRule    error
	FailWriteState error
	FailSetBounds  error
	FailSetDesired error
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		Groups:    make(map[string]*GroupState),
		routes:    make(map[string][2]int32),
		Rules:     make(map[string]string),
		Params:    make(map[string]string),
		Discovery: make(map[string]bool),
	}
}

func (m *MemoryGateway) record(format string, args ...any) {
	m.Mutations = append(m.Mutations, fmt.Sprintf(format, args...))
}

func (m *MemoryGateway) group(name string) (*GroupState, error) {
	g, ok := m.Groups[name]
	if !ok {
		return nil, fmt.Errorf("scaling group %s not found", name)
	}
	return g, nil
}

func (m *MemoryGateway) GroupCapacity(_ context.Context, group string) (types.GroupCapacity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.group(group)
	if err != nil {
		return types.GroupCapacity{}, err
	}
	return g.Capacity, nil
}

func (m *MemoryGateway) SetBounds(_ context.Context, group string, min, max int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetBounds != nil {
		return m.FailSetBounds
	}
	g, err := m.group(group)
	if err != nil {
		return err
	}
	g.Capacity.Min = min
	g.Capacity.Max = max
	m.record("set-bounds %s %d %d", group, min, max)
	return nil
}

func (m *MemoryGateway) SetDesired(_ context.Context, group string, n int32, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetDesired != nil {
		return m.FailSetDesired
	}
	g, err := m.group(group)
	if err != nil {
		return err
	}
	g.Capacity.Desired = n
	if version != "" {
		g.Version = version
	}
	m.record("set-desired %s %d %s", group, n, version)
	return nil
}

func (m *MemoryGateway) FleetHealth(_ context.Context, group string) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.group(group)
	if err != nil {
		return 0, 0, err
	}
	if m.AutoHealthy {
		return g.Capacity.Desired, g.Capacity.Desired, nil
	}
	return g.FleetHealthy, g.FleetTotal, nil
}

func (m *MemoryGateway) RouteHealth(_ context.Context, targetGroup string) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AutoHealthy {
		// Mirror the largest desired capacity; individual tests that need
		// finer control use SetRouteHealth instead.
		var n int32
		for _, g := range m.Groups {
			if g.Capacity.Desired > n {
				n = g.Capacity.Desired
			}
		}
		return n, n, nil
	}
	h := m.routes[targetGroup]
	return h[0], h[1], nil
}

// SetRouteHealth sets the routing-health counts for a target group.
func (m *MemoryGateway) SetRouteHealth(targetGroup string, healthy, total int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[targetGroup] = [2]int32{healthy, total}
}

// SetFleetHealth sets the fleet-health counts for a scaling group.
func (m *MemoryGateway) SetFleetHealth(group string, healthy, total int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.Groups[group]; ok {
		g.FleetHealthy = healthy
		g.FleetTotal = total
	}
}

func (m *MemoryGateway) GetRule(_ context.Context, ruleRef string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.Rules[ruleRef]
	if !ok {
		return "", fmt.Errorf("forwarding rule %s not found", ruleRef)
	}
	return ref, nil
}

func (m *MemoryGateway) SetRule(_ context.Context, ruleRef, targetRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSetRule != nil {
		return m.FailSetRule
	}
	m.Rules[ruleRef] = targetRef
	m.record("set-rule %s %s", ruleRef, targetRef)
	return nil
}

func (m *MemoryGateway) ReadState(_ context.Context, prefix string) (*types.DeploymentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	color, ok := m.Params[prefix+keyActiveColor]
	if !ok {
		return nil, fmt.Errorf("state entry %s%s not found", prefix, keyActiveColor)
	}
	ref, ok := m.Params[prefix+keyActiveTargetRef]
	if !ok {
		return nil, fmt.Errorf("state entry %s%s not found", prefix, keyActiveTargetRef)
	}
	c, err := types.ParseColor(color)
	if err != nil {
		return nil, fmt.Errorf("corrupt state under %s: %w", prefix, err)
	}
	return &types.DeploymentState{ActiveColor: c, ActiveTargetRef: ref}, nil
}

func (m *MemoryGateway) WriteState(_ context.Context, prefix string, st *types.DeploymentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWriteState != nil {
		return m.FailWriteState
	}
	m.Params[prefix+keyActiveColor] = string(st.ActiveColor)
	m.Params[prefix+keyActiveTargetRef] = st.ActiveTargetRef
	m.record("write-state %s %s", prefix, st.ActiveColor)
	return nil
}

func (m *MemoryGateway) DiscoveryExists(_ context.Context, prefix, version string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Discovery[prefix+keyDiscovery+version], nil
}

func (m *MemoryGateway) CopyDiscovery(_ context.Context, fromPrefix, toPrefix, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Discovery[fromPrefix+keyDiscovery+version] {
		return fmt.Errorf("no discovery data for %s under %s", version, fromPrefix)
	}
	m.Discovery[toPrefix+keyDiscovery+version] = true
	m.record("copy-discovery %s %s %s", fromPrefix, toPrefix, version)
	return nil
}

var _ Gateway = (*MemoryGateway)(nil)
