package switcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/storage"
	"github.com/cloudshift/cutover/pkg/types"
)

func testEnv() *types.Environment {
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

func seededGateway(t *testing.T) *gateway.MemoryGateway {
	t.Helper()
	gw := gateway.NewMemoryGateway()
	err := gw.WriteState(context.Background(), "/cutover/staging", &types.DeploymentState{
		ActiveColor:     types.ColorBlue,
		ActiveTargetRef: "stg-blue-tg",
	})
	require.NoError(t, err)
	gw.Rules["stg-rule"] = "stg-blue-tg"
	gw.Mutations = nil
	return gw
}

func TestSwitchToMovesRuleThenState(t *testing.T) {
	gw := seededGateway(t)
	s := New(gw, nil)

	err := s.SwitchTo(context.Background(), testEnv(), types.ColorGreen, "v2", "op-1")
	require.NoError(t, err)

	assert.Equal(t, "stg-green-tg", gw.Rules["stg-rule"])
	st, err := gw.ReadState(context.Background(), "/cutover/staging")
	require.NoError(t, err)
	assert.Equal(t, types.ColorGreen, st.ActiveColor)
	assert.Equal(t, "stg-green-tg", st.ActiveTargetRef)

	// The rule moves before the record is written; the other order would
	// briefly record a color that is not receiving traffic.
	require.Len(t, gw.Mutations, 2)
	assert.True(t, strings.HasPrefix(gw.Mutations[0], "set-rule"))
	assert.True(t, strings.HasPrefix(gw.Mutations[1], "write-state"))
}

func TestSwitchToRuleRejectionIsSwitchFailed(t *testing.T) {
	gw := seededGateway(t)
	gw.FailSetRule = errors.New("listener busy")
	s := New(gw, nil)

	err := s.SwitchTo(context.Background(), testEnv(), types.ColorGreen, "v2", "op-1")
	assert.ErrorIs(t, err, faults.ErrSwitchFailed)

	// Nothing changed: rule and record still agree on blue.
	assert.Equal(t, "stg-blue-tg", gw.Rules["stg-rule"])
	st, rerr := gw.ReadState(context.Background(), "/cutover/staging")
	require.NoError(t, rerr)
	assert.Equal(t, types.ColorBlue, st.ActiveColor)
}

func TestSwitchToStateWriteFailureIsPersistenceLag(t *testing.T) {
	gw := seededGateway(t)
	gw.FailWriteState = errors.New("parameter store down")
	s := New(gw, nil)

	err := s.SwitchTo(context.Background(), testEnv(), types.ColorGreen, "v2", "op-1")
	assert.ErrorIs(t, err, faults.ErrStatePersistenceLag)

	// Traffic moved and is NOT reverted: a rule revert on an uncertain
	// write failure is riskier than a stale record.
	assert.Equal(t, "stg-green-tg", gw.Rules["stg-rule"])
	st, rerr := gw.ReadState(context.Background(), "/cutover/staging")
	require.NoError(t, rerr)
	assert.Equal(t, types.ColorBlue, st.ActiveColor)
}

func TestSwitchToJournalsTheSwitch(t *testing.T) {
	gw := seededGateway(t)
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	s := New(gw, store)
	require.NoError(t, s.SwitchTo(context.Background(), testEnv(), types.ColorGreen, "v2", "op-1"))

	recent, err := store.RecentSwitches("staging", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "op-1", recent[0].OperationID)
	assert.Equal(t, types.ColorBlue, recent[0].From)
	assert.Equal(t, types.ColorGreen, recent[0].To)
	assert.Equal(t, "v2", recent[0].Version)
	assert.WithinDuration(t, time.Now(), recent[0].SwitchedAt, time.Minute)
}
