package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshift/cutover/pkg/types"
)

func seedTestEnv() *types.Environment {
	return &types.Environment{
		Name: "staging",
		Blue: types.ColorGroup{
			Color:        types.ColorBlue,
			ScalingGroup: "stg-blue-asg",
			TargetGroup:  "stg-blue-tg",
		},
		Green: types.ColorGroup{
			Color:        types.ColorGreen,
			ScalingGroup: "stg-green-asg",
			TargetGroup:  "stg-green-tg",
		},
		RuleRef:     "stg-rule",
		StatePrefix: "/cutover/staging",
	}
}

func TestSeedFromLive(t *testing.T) {
	env := seedTestEnv()

	live := NewMemoryGateway()
	live.Groups["stg-blue-asg"] = &GroupState{
		Capacity:     types.GroupCapacity{Desired: 2, Min: 1, Max: 4},
		FleetHealthy: 2,
		FleetTotal:   2,
	}
	live.Groups["stg-green-asg"] = &GroupState{}
	live.SetRouteHealth("stg-blue-tg", 2, 2)
	live.Rules["stg-rule"] = "stg-blue-tg"
	require.NoError(t, live.WriteState(context.Background(), env.StatePrefix, &types.DeploymentState{
		ActiveColor:     types.ColorBlue,
		ActiveTargetRef: "stg-blue-tg",
	}))
	live.Discovery["/cutover/staging/discovery/v2"] = true

	mem, err := SeedFromLive(context.Background(), live, env, "v2")
	require.NoError(t, err)

	// Capacity, health, rule and state all carried over.
	assert.Equal(t, int32(2), mem.Groups["stg-blue-asg"].Capacity.Desired)
	assert.Equal(t, int32(2), mem.Groups["stg-blue-asg"].FleetHealthy)
	assert.Equal(t, "stg-blue-tg", mem.Rules["stg-rule"])

	st, err := mem.ReadState(context.Background(), env.StatePrefix)
	require.NoError(t, err)
	assert.Equal(t, types.ColorBlue, st.ActiveColor)

	exists, err := mem.DiscoveryExists(context.Background(), env.StatePrefix, "v2")
	require.NoError(t, err)
	assert.True(t, exists)

	// Seeding itself is not part of any plan.
	assert.Empty(t, mem.Mutations)
}

func TestSeedFromLiveMissingGroup(t *testing.T) {
	live := NewMemoryGateway()
	_, err := SeedFromLive(context.Background(), live, seedTestEnv(), "")
	assert.Error(t, err)
}

func TestSeededCopyRecordsMutations(t *testing.T) {
	env := seedTestEnv()
	live := NewMemoryGateway()
	live.Groups["stg-blue-asg"] = &GroupState{Capacity: types.GroupCapacity{Desired: 1, Min: 1, Max: 2}}
	live.Groups["stg-green-asg"] = &GroupState{}
	live.Rules["stg-rule"] = "stg-blue-tg"
	require.NoError(t, live.WriteState(context.Background(), env.StatePrefix, &types.DeploymentState{
		ActiveColor:     types.ColorBlue,
		ActiveTargetRef: "stg-blue-tg",
	}))

	mem, err := SeedFromLive(context.Background(), live, env, "")
	require.NoError(t, err)

	require.NoError(t, mem.SetDesired(context.Background(), "stg-green-asg", 1, "v2"))
	require.NoError(t, mem.SetRule(context.Background(), "stg-rule", "stg-green-tg"))

	require.Len(t, mem.Mutations, 2)
	assert.Equal(t, "set-desired stg-green-asg 1 v2", mem.Mutations[0])
	assert.Equal(t, "set-rule stg-rule stg-green-tg", mem.Mutations[1])

	// The live gateway saw none of it.
	assert.Equal(t, int32(0), live.Groups["stg-green-asg"].Capacity.Desired)
	assert.Equal(t, "stg-blue-tg", live.Rules["stg-rule"])
}
