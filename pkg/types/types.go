package types

import (
	"fmt"
	"time"
)

// Color identifies one of the two halves of an environment.
type Color string

const (
	ColorBlue  Color = "blue"
	ColorGreen Color = "green"
)

// Other returns the opposite color.
func (c Color) Other() Color {
	if c == ColorBlue {
		return ColorGreen
	}
	return ColorBlue
}

// Valid reports whether c is one of the two known colors.
func (c Color) Valid() bool {
	return c == ColorBlue || c == ColorGreen
}

// ParseColor parses a color name from user input.
func ParseColor(s string) (Color, error) {
	c := Color(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown color %q (must be %s or %s)", s, ColorBlue, ColorGreen)
	}
	return c, nil
}

// SafetyTier controls which precondition checks apply to an environment.
type SafetyTier string

const (
	TierStandard  SafetyTier = "standard"
	TierHighTrust SafetyTier = "high-trust"
)

// ColorGroup is one physical half of an environment. The underlying fleet
// resources are owned by the provisioning layer; this system only reads and
// mutates capacity bounds and observes health.
type ColorGroup struct {
	Color        Color
	ScalingGroup string // scaling-group identifier
	TargetGroup  string // routable-group identifier
}

// Environment is a named deployment target. Immutable once configured;
// read at the start of every operation.
type Environment struct {
	Name        string
	Tier        SafetyTier
	Blue        ColorGroup
	Green       ColorGroup
	RuleRef     string // forwarding rule identifier
	StatePrefix string // key prefix for the persisted deployment state

	// DiscoverySource names a lower-trust environment that discovery data
	// may be copied from. Only meaningful for high-trust environments.
	DiscoverySource string

	HealthPollInterval time.Duration
	HealthTimeout      time.Duration
}

// Group returns the ColorGroup for the given color.
func (e *Environment) Group(c Color) ColorGroup {
	if c == ColorGreen {
		return e.Green
	}
	return e.Blue
}

// GroupCapacity is the current capacity configuration of a scaling group.
type GroupCapacity struct {
	Desired int32
	Min     int32
	Max     int32
}

// DeploymentState is the persisted record of which color is live. Both
// fields are mutated together by the traffic switcher; a mismatch between
// them is a consistency fault, never silently repaired.
type DeploymentState struct {
	ActiveColor     Color  `json:"active_color"`
	ActiveTargetRef string `json:"active_target_ref"`
}

// CapacityProtectionRecord captures a scaling group's pre-operation bounds
// so they can be restored after the operation, including on abort.
type CapacityProtectionRecord struct {
	ID           string    `json:"id"`
	Environment  string    `json:"environment"`
	Color        Color     `json:"color"`
	ScalingGroup string    `json:"scaling_group"`
	PriorMin     int32     `json:"prior_min"`
	PriorMax     int32     `json:"prior_max"`
	PinnedAt     int32     `json:"pinned_at"` // desired capacity the bounds were pinned to
	CreatedAt    time.Time `json:"created_at"`

	// Restored marks the record as already released. Restore is idempotent:
	// both normal completion and interrupt cleanup may attempt it.
	Restored bool `json:"restored"`
}

// HealthSignal names one of the two independent health signals.
type HealthSignal string

const (
	SignalFleet   HealthSignal = "fleet"
	SignalRouting HealthSignal = "routing"
)

// HealthReport is the outcome of a health wait. On timeout it carries the
// partial counts achieved and which signal lagged, rather than an error,
// so the caller can decide whether to warn, abort, or proceed.
type HealthReport struct {
	Healthy      bool
	Desired      int32
	FleetHealthy int32
	FleetTotal   int32
	RouteHealthy int32
	RouteTotal   int32
	Elapsed      time.Duration
	Lagging      HealthSignal // set when Healthy is false
}

// SwitchRecord is one journal entry for a completed traffic switch.
type SwitchRecord struct {
	OperationID string    `json:"operation_id"`
	Environment string    `json:"environment"`
	From        Color     `json:"from"`
	To          Color     `json:"to"`
	Version     string    `json:"version,omitempty"`
	SwitchedAt  time.Time `json:"switched_at"`
}

// ColorStatus is the per-color view reported by the status operation.
type ColorStatus struct {
	Color        Color         `json:"color" yaml:"color"`
	Role         string        `json:"role" yaml:"role"` // "active" or "inactive"
	Capacity     GroupCapacity `json:"capacity" yaml:"capacity"`
	FleetHealthy int32         `json:"fleet_healthy" yaml:"fleet_healthy"`
	FleetTotal   int32         `json:"fleet_total" yaml:"fleet_total"`
	RouteHealthy int32         `json:"route_healthy" yaml:"route_healthy"`
	RouteTotal   int32         `json:"route_total" yaml:"route_total"`
}

// EnvironmentStatus is the full status report for an environment.
type EnvironmentStatus struct {
	Environment    string         `json:"environment" yaml:"environment"`
	ActiveColor    Color          `json:"active_color" yaml:"active_color"`
	Colors         []ColorStatus  `json:"colors" yaml:"colors"`
	RecentSwitches []SwitchRecord `json:"recent_switches,omitempty" yaml:"recent_switches,omitempty"`
}
