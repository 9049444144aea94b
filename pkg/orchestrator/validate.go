package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/protect"
	"github.com/cloudshift/cutover/pkg/types"
)

// StaleProtectionAge is how old a protection checkpoint must be before
// validate treats it as abandoned by a dead process.
const StaleProtectionAge = 30 * time.Minute

// Finding is one discrepancy reported by validate.
type Finding struct {
	Severity string // "error" or "warning"
	Message  string
}

// Validate performs read-only checks: both groups exist, the forwarding
// rule matches the persisted state, health probes are answerable, and no
// abandoned protection checkpoints linger. It mutates nothing and reports
// every discrepancy it finds; the returned error carries the most severe
// fault so the CLI exits distinctly.
func (o *Orchestrator) Validate(ctx context.Context, env *types.Environment) ([]Finding, error) {
	var findings []Finding
	var fatal error
	fail := func(err error, format string, args ...any) {
		findings = append(findings, Finding{Severity: "error", Message: fmt.Sprintf(format, args...)})
		if fatal == nil {
			fatal = err
		}
	}
	warn := func(format string, args ...any) {
		findings = append(findings, Finding{Severity: "warning", Message: fmt.Sprintf(format, args...)})
	}

	st, serr := o.gw.ReadState(ctx, env.StatePrefix)
	if serr != nil {
		fail(fmt.Errorf("%w: %v", faults.ErrStateUnavailable, serr),
			"deployment state unreadable: %v", serr)
	}

	// Both groups must exist and answer both health signals.
	for _, color := range []types.Color{types.ColorBlue, types.ColorGreen} {
		group := env.Group(color)
		if _, err := o.gw.GroupCapacity(ctx, group.ScalingGroup); err != nil {
			fail(err, "%s scaling group %s unreadable: %v", color, group.ScalingGroup, err)
			continue
		}
		if _, _, err := o.gw.FleetHealth(ctx, group.ScalingGroup); err != nil {
			fail(err, "%s fleet health unreadable: %v", color, err)
		}
		if _, _, err := o.gw.RouteHealth(ctx, group.TargetGroup); err != nil {
			fail(err, "%s routing health probe unanswerable for %s: %v", color, group.TargetGroup, err)
		}
	}

	if st != nil {
		owned := env.Group(st.ActiveColor).TargetGroup
		if st.ActiveTargetRef != owned {
			fail(fmt.Errorf("%w: recorded target does not belong to recorded color", faults.ErrStateInconsistent),
				"state records color %s but target %s (that color owns %s)",
				st.ActiveColor, st.ActiveTargetRef, owned)
		}
		live, lerr := o.gw.GetRule(ctx, env.RuleRef)
		switch {
		case lerr != nil:
			fail(lerr, "forwarding rule unreadable: %v", lerr)
		case live != st.ActiveTargetRef:
			// Either drift or a switch whose record write failed.
			fail(fmt.Errorf("%w: live rule %s vs recorded %s", faults.ErrStateInconsistent, live, st.ActiveTargetRef),
				"forwarding rule points at %s but state records %s; if a recent switch reported persistence lag, reconcile the record manually",
				live, st.ActiveTargetRef)
		}
	}

	if o.store != nil {
		stale, lerr := o.store.StaleCheckpoints(StaleProtectionAge)
		if lerr != nil {
			warn("could not read protection checkpoints: %v", lerr)
		}
		for _, rec := range stale {
			if rec.Environment != env.Name {
				continue
			}
			warn("abandoned capacity protection on %s (%s) pinned at %d since %s, prior bounds %d/%d; run validate --release-stale to clear",
				rec.ScalingGroup, rec.Color, rec.PinnedAt,
				rec.CreatedAt.Format(time.RFC3339), rec.PriorMin, rec.PriorMax)
		}
	}

	return findings, fatal
}

// ReleaseStale restores bounds recorded by abandoned protection
// checkpoints and clears them. Only checkpoints older than
// StaleProtectionAge are touched.
func (o *Orchestrator) ReleaseStale(ctx context.Context, env *types.Environment) (int, error) {
	if o.store == nil {
		return 0, nil
	}
	stale, err := o.store.StaleCheckpoints(StaleProtectionAge)
	if err != nil {
		return 0, err
	}
	logger := log.WithEnvironment(env.Name)
	released := 0
	for _, rec := range stale {
		if rec.Environment != env.Name {
			continue
		}
		if rerr := protect.Restore(ctx, o.gw, rec); rerr != nil {
			return released, rerr
		}
		if derr := o.store.DeleteCheckpoint(rec.ID); derr != nil {
			return released, derr
		}
		logger.Info().
			Str("group", rec.ScalingGroup).
			Msg("released stale capacity protection")
		released++
	}
	return released, nil
}
