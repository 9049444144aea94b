package protect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/types"
)

func testGroup() types.ColorGroup {
	return types.ColorGroup{
		Color:        types.ColorBlue,
		ScalingGroup: "stg-blue-asg",
		TargetGroup:  "stg-blue-tg",
	}
}

func TestProtectPinsBounds(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	gw.Groups["stg-blue-asg"] = &gateway.GroupState{
		Capacity: types.GroupCapacity{Desired: 3, Min: 1, Max: 10},
	}

	rec, err := Protect(context.Background(), gw, "staging", testGroup())
	require.NoError(t, err)

	// Bounds are pinned to the current desired capacity.
	assert.Equal(t, int32(3), gw.Groups["stg-blue-asg"].Capacity.Min)
	assert.Equal(t, int32(3), gw.Groups["stg-blue-asg"].Capacity.Max)

	// The record captures the prior bounds for restore.
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "staging", rec.Environment)
	assert.Equal(t, int32(1), rec.PriorMin)
	assert.Equal(t, int32(10), rec.PriorMax)
	assert.Equal(t, int32(3), rec.PinnedAt)
	assert.False(t, rec.Restored)
}

func TestProtectFailsWhenGroupMissing(t *testing.T) {
	gw := gateway.NewMemoryGateway()

	rec, err := Protect(context.Background(), gw, "staging", testGroup())
	assert.Error(t, err)
	assert.Nil(t, rec)
}

func TestRestoreIsIdempotent(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	gw.Groups["stg-blue-asg"] = &gateway.GroupState{
		Capacity: types.GroupCapacity{Desired: 3, Min: 1, Max: 10},
	}

	rec, err := Protect(context.Background(), gw, "staging", testGroup())
	require.NoError(t, err)

	require.NoError(t, Restore(context.Background(), gw, rec))
	assert.True(t, rec.Restored)
	assert.Equal(t, int32(1), gw.Groups["stg-blue-asg"].Capacity.Min)
	assert.Equal(t, int32(10), gw.Groups["stg-blue-asg"].Capacity.Max)

	// Normal completion and interrupt cleanup may both call Restore; the
	// second call must not issue another mutation.
	before := len(gw.Mutations)
	require.NoError(t, Restore(context.Background(), gw, rec))
	assert.Equal(t, before, len(gw.Mutations))
}

func TestRestoreNilRecordIsNoop(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	assert.NoError(t, Restore(context.Background(), gw, nil))
	assert.Empty(t, gw.Mutations)
}

func TestRestoreFailureKeepsRecordUnrestored(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	gw.Groups["stg-blue-asg"] = &gateway.GroupState{
		Capacity: types.GroupCapacity{Desired: 3, Min: 1, Max: 10},
	}

	rec, err := Protect(context.Background(), gw, "staging", testGroup())
	require.NoError(t, err)

	gw.FailSetBounds = errors.New("throttled")
	assert.Error(t, Restore(context.Background(), gw, rec))
	// A failed restore stays retryable.
	assert.False(t, rec.Restored)
}
