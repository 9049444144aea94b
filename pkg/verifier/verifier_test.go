package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudshift/cutover/pkg/types"
)

// scriptedHealth returns a fixed sequence of health reads; the last step
// repeats once the script is exhausted.
type scriptedHealth struct {
	steps []healthStep
	calls int
}

type healthStep struct {
	fleetHealthy, fleetTotal int32
	routeHealthy, routeTotal int32
	err                      error
}

func (s *scriptedHealth) step() healthStep {
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i]
}

func (s *scriptedHealth) FleetHealth(_ context.Context, _ string) (int32, int32, error) {
	st := s.step()
	return st.fleetHealthy, st.fleetTotal, st.err
}

func (s *scriptedHealth) RouteHealth(_ context.Context, _ string) (int32, int32, error) {
	st := s.step()
	s.calls++
	return st.routeHealthy, st.routeTotal, st.err
}

func testGroup() types.ColorGroup {
	return types.ColorGroup{
		Color:        types.ColorGreen,
		ScalingGroup: "stg-green-asg",
		TargetGroup:  "stg-green-tg",
	}
}

func fastOpts() Options {
	return Options{Interval: time.Millisecond, Timeout: 100 * time.Millisecond}
}

func TestAwaitHealthyRequiresBothSignals(t *testing.T) {
	hapi := &scriptedHealth{steps: []healthStep{
		// Fleet reaches quorum first; routing lags behind.
		{fleetHealthy: 2, fleetTotal: 2, routeHealthy: 0, routeTotal: 2},
		{fleetHealthy: 2, fleetTotal: 2, routeHealthy: 1, routeTotal: 2},
		{fleetHealthy: 2, fleetTotal: 2, routeHealthy: 2, routeTotal: 2},
	}}

	report, err := AwaitHealthy(context.Background(), hapi, testGroup(), 2, fastOpts())
	require.NoError(t, err)
	assert.True(t, report.Healthy)
	assert.Equal(t, int32(2), report.FleetHealthy)
	assert.Equal(t, int32(2), report.RouteHealthy)
	assert.Empty(t, report.Lagging)
}

func TestAwaitHealthyTimeoutIsNotAnError(t *testing.T) {
	hapi := &scriptedHealth{steps: []healthStep{
		{fleetHealthy: 2, fleetTotal: 2, routeHealthy: 1, routeTotal: 2},
	}}

	report, err := AwaitHealthy(context.Background(), hapi, testGroup(), 2, fastOpts())
	require.NoError(t, err)
	assert.False(t, report.Healthy)
	// The partial counts and the lagging signal survive into the report.
	assert.Equal(t, int32(2), report.FleetHealthy)
	assert.Equal(t, int32(1), report.RouteHealthy)
	assert.Equal(t, types.SignalRouting, report.Lagging)
	assert.Greater(t, report.Elapsed, time.Duration(0))
}

func TestAwaitHealthyAttributesFleetLag(t *testing.T) {
	hapi := &scriptedHealth{steps: []healthStep{
		{fleetHealthy: 0, fleetTotal: 2, routeHealthy: 2, routeTotal: 2},
	}}

	report, err := AwaitHealthy(context.Background(), hapi, testGroup(), 2, fastOpts())
	require.NoError(t, err)
	assert.False(t, report.Healthy)
	assert.Equal(t, types.SignalFleet, report.Lagging)
}

func TestAwaitHealthyProbeErrorSurfaces(t *testing.T) {
	probeErr := errors.New("throttled")
	hapi := &scriptedHealth{steps: []healthStep{{err: probeErr}}}

	_, err := AwaitHealthy(context.Background(), hapi, testGroup(), 2, fastOpts())
	assert.ErrorIs(t, err, probeErr)
}

func TestAwaitHealthyObservesCancellation(t *testing.T) {
	hapi := &scriptedHealth{steps: []healthStep{
		{fleetHealthy: 0, fleetTotal: 2, routeHealthy: 0, routeTotal: 2},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitHealthy(ctx, hapi, testGroup(), 2, Options{
		Interval: time.Hour, // cancellation must win, not the ticker
		Timeout:  time.Hour,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
