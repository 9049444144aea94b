// Package protect pins a scaling group's capacity bounds for the duration
// of an operation so external scaling policies cannot interfere, and
// restores the prior bounds afterwards. Protect/Restore is the only path
// deployment code may use to touch an active group's bounds.
package protect

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/types"
)

// Protect reads the group's current desired capacity d and sets
// min = max = d, preventing both policy-driven scale-out and scale-in for
// the protection window. The returned record captures the prior bounds.
func Protect(ctx context.Context, capi gateway.CapacityAPI, env string, group types.ColorGroup) (*types.CapacityProtectionRecord, error) {
	cur, err := capi.GroupCapacity(ctx, group.ScalingGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to read capacity of %s: %w", group.ScalingGroup, err)
	}
	if err := capi.SetBounds(ctx, group.ScalingGroup, cur.Desired, cur.Desired); err != nil {
		return nil, fmt.Errorf("failed to pin bounds of %s: %w", group.ScalingGroup, err)
	}
	rec := &types.CapacityProtectionRecord{
		ID:           uuid.New().String(),
		Environment:  env,
		Color:        group.Color,
		ScalingGroup: group.ScalingGroup,
		PriorMin:     cur.Min,
		PriorMax:     cur.Max,
		PinnedAt:     cur.Desired,
		CreatedAt:    time.Now(),
	}
	logger := log.WithComponent("protect")
	logger.Info().
		Str("environment", env).
		Str("color", string(group.Color)).
		Int32("pinned", cur.Desired).
		Msg("capacity bounds pinned")
	return rec, nil
}

// Restore sets the group's bounds back to the recorded values. It is
// idempotent: a second call, or a call on an already-restored record, is a
// no-op. Both normal completion and interrupt cleanup may attempt it.
func Restore(ctx context.Context, capi gateway.CapacityAPI, rec *types.CapacityProtectionRecord) error {
	if rec == nil || rec.Restored {
		return nil
	}
	if err := capi.SetBounds(ctx, rec.ScalingGroup, rec.PriorMin, rec.PriorMax); err != nil {
		return fmt.Errorf("failed to restore bounds of %s: %w", rec.ScalingGroup, err)
	}
	rec.Restored = true
	logger := log.WithComponent("protect")
	logger.Info().
		Str("environment", rec.Environment).
		Str("color", string(rec.Color)).
		Int32("min", rec.PriorMin).
		Int32("max", rec.PriorMax).
		Msg("capacity bounds restored")
	return nil
}
