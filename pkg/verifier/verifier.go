// Package verifier polls the two independent health signals of a color
// group until a quorum is healthy on both simultaneously, or a timeout
// elapses. Fleet-healthy-but-routing-unhealthy is not ready.
package verifier

import (
	"context"
	"time"

	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/types"
)

// Options configures a health wait. Intervals are environment-configurable
// because some fleets need longer grace periods between probes.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultOptions returns conservative polling defaults.
func DefaultOptions() Options {
	return Options{
		Interval: 10 * time.Second,
		Timeout:  10 * time.Minute,
	}
}

// AwaitHealthy polls fleet health and routing health every interval until
// desired units are healthy on both signals at the same read, the timeout
// elapses, or ctx is cancelled. Timeout is not an error: the report carries
// the partial counts and which signal lagged so the caller can decide
// whether to warn, abort, or proceed. Cancellation is observed inside each
// iteration, not only between iterations.
func AwaitHealthy(ctx context.Context, hapi gateway.HealthAPI, group types.ColorGroup, desired int32, opts Options) (types.HealthReport, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	logger := log.WithComponent("verifier")
	start := time.Now()
	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	report := types.HealthReport{Desired: desired}
	for {
		var err error
		report.FleetHealthy, report.FleetTotal, err = hapi.FleetHealth(ctx, group.ScalingGroup)
		if err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}
		report.RouteHealthy, report.RouteTotal, err = hapi.RouteHealth(ctx, group.TargetGroup)
		if err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		if report.FleetHealthy >= desired && report.RouteHealthy >= desired {
			report.Healthy = true
			report.Lagging = ""
			report.Elapsed = time.Since(start)
			return report, nil
		}
		if report.FleetHealthy < desired {
			report.Lagging = types.SignalFleet
		} else {
			report.Lagging = types.SignalRouting
		}

		logger.Debug().
			Str("group", group.ScalingGroup).
			Int32("fleet_healthy", report.FleetHealthy).
			Int32("route_healthy", report.RouteHealthy).
			Int32("desired", desired).
			Msg("waiting for health quorum")

		select {
		case <-ticker.C:
		case <-deadline.C:
			report.Elapsed = time.Since(start)
			return report, nil
		case <-ctx.Done():
			report.Elapsed = time.Since(start)
			return report, ctx.Err()
		}
	}
}
