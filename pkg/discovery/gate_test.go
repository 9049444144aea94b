package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/types"
)

func prodEnv() *types.Environment {
	return &types.Environment{
		Name:        "production",
		Tier:        types.TierHighTrust,
		StatePrefix: "/cutover/production",
	}
}

func stagingEnv() *types.Environment {
	return &types.Environment{
		Name:        "staging",
		Tier:        types.TierStandard,
		StatePrefix: "/cutover/staging",
	}
}

func accept(string) (bool, error)  { return true, nil }
func decline(string) (bool, error) { return false, nil }

func TestGateSkipsStandardTier(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	g := NewGate(gw, nil)

	// No discovery data anywhere, but the tier does not require it.
	err := g.Check(context.Background(), stagingEnv(), "v2", Options{SkipConfirmation: true})
	assert.NoError(t, err)
}

func TestGatePassesWhenDataExists(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	gw.Discovery["/cutover/production/discovery/v2"] = true
	g := NewGate(gw, nil)

	err := g.Check(context.Background(), prodEnv(), "v2", Options{SkipConfirmation: true})
	assert.NoError(t, err)
}

func TestGateRejectsSuppressedConfirmation(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	g := NewGate(gw, stagingEnv())

	// There is no non-interactive path past the gate, even with a copy
	// source configured.
	err := g.Check(context.Background(), prodEnv(), "v2", Options{SkipConfirmation: true, Confirm: accept})
	assert.ErrorIs(t, err, faults.ErrDiscoveryRequired)
	assert.Empty(t, gw.Mutations)
}

func TestGateRejectsNonInteractiveSession(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	g := NewGate(gw, stagingEnv())

	err := g.Check(context.Background(), prodEnv(), "v2", Options{})
	assert.ErrorIs(t, err, faults.ErrDiscoveryRequired)
}

func TestGateRejectsWithoutCopySource(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	g := NewGate(gw, nil)

	err := g.Check(context.Background(), prodEnv(), "v2", Options{Confirm: accept})
	assert.ErrorIs(t, err, faults.ErrDiscoveryRequired)
}

func TestGateCopiesOnConfirmation(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	gw.Discovery["/cutover/staging/discovery/v2"] = true
	g := NewGate(gw, stagingEnv())

	err := g.Check(context.Background(), prodEnv(), "v2", Options{Confirm: accept})
	require.NoError(t, err)

	exists, err := gw.DiscoveryExists(context.Background(), "/cutover/production", "v2")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGateDeclineAbortsBeforeCopy(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	gw.Discovery["/cutover/staging/discovery/v2"] = true
	g := NewGate(gw, stagingEnv())

	err := g.Check(context.Background(), prodEnv(), "v2", Options{Confirm: decline})
	assert.ErrorIs(t, err, faults.ErrUserAborted)
	assert.Empty(t, gw.Mutations)
}

func TestGateRequiresExplicitVersion(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	g := NewGate(gw, stagingEnv())

	err := g.Check(context.Background(), prodEnv(), "", Options{Confirm: accept})
	assert.ErrorIs(t, err, faults.ErrDiscoveryRequired)
}

func TestGateCopyFailureBlocksDeployment(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	// Source has no data for this version either, so the copy fails.
	g := NewGate(gw, stagingEnv())

	err := g.Check(context.Background(), prodEnv(), "v2", Options{Confirm: accept})
	assert.ErrorIs(t, err, faults.ErrDiscoveryRequired)
}
