package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/metrics"
	"github.com/cloudshift/cutover/pkg/protect"
	"github.com/cloudshift/cutover/pkg/resolver"
	"github.com/cloudshift/cutover/pkg/types"
)

// SwitchOptions configures switch and rollback operations.
type SwitchOptions struct {
	SkipConfirmation bool

	// Force skips the positive health read on the target. The operator is
	// asserting the target is ready.
	Force bool
}

// Switch moves live traffic to the target color without scaling anything.
// It still requires a positive health read on the target unless forced.
func (o *Orchestrator) Switch(ctx context.Context, env *types.Environment, target types.Color, opts SwitchOptions) error {
	return o.switchTo(ctx, env, "switch", target, opts)
}

// Rollback moves traffic back to the color that is not currently active.
// A standby left warm by a previous deploy takes traffic again without a
// new scale-up.
func (o *Orchestrator) Rollback(ctx context.Context, env *types.Environment, opts SwitchOptions) error {
	return o.switchTo(ctx, env, "rollback", "", opts)
}

func (o *Orchestrator) switchTo(ctx context.Context, env *types.Environment, operation string, target types.Color, opts SwitchOptions) (err error) {
	opID := uuid.New().String()
	logger := log.WithOperation(env.Name, operation, opID)
	timer := metrics.NewTimer()
	defer func() {
		metrics.OperationsTotal.WithLabelValues(operation, faults.Label(err)).Inc()
		timer.ObserveDurationVec(metrics.OperationDuration, operation)
		o.setPhase(PhaseIdle)
	}()

	o.setPhase(PhaseResolving)
	res, rerr := resolver.Resolve(ctx, o.gw, env)
	if rerr != nil {
		return rerr
	}
	if target == "" {
		target = res.Inactive
	}
	if target == res.Active {
		logger.Info().Str("color", string(target)).Msg("target color is already active; nothing to do")
		return nil
	}
	group := env.Group(target)

	if !opts.Force {
		fleetHealthy, fleetTotal, herr := o.gw.FleetHealth(ctx, group.ScalingGroup)
		if herr != nil {
			return herr
		}
		routeHealthy, routeTotal, herr := o.gw.RouteHealth(ctx, group.TargetGroup)
		if herr != nil {
			return herr
		}
		if fleetHealthy == 0 || routeHealthy == 0 {
			return fmt.Errorf("%w: %s is not ready (fleet %d/%d, routing %d/%d); use --force to override",
				faults.ErrHealthTimeout, group.ScalingGroup,
				fleetHealthy, fleetTotal, routeHealthy, routeTotal)
		}
	}

	prompt := fmt.Sprintf("move live traffic in %s from %s to %s?", env.Name, res.Active, target)
	if aerr := o.ask(opts.SkipConfirmation, prompt); aerr != nil {
		return aerr
	}

	// Pin the outgoing group for the switch window so a scaling policy
	// cannot shrink it while it may still be serving.
	o.setPhase(PhaseProtecting)
	rec, perr := protect.Protect(ctx, o.gw, env.Name, env.Group(res.Active))
	if perr != nil {
		return perr
	}
	metrics.ProtectionActive.WithLabelValues(env.Name).Set(1)
	o.checkpoint(logger, rec)

	o.setPhase(PhaseSwitching)
	if serr := o.switcher.SwitchTo(ctx, env, target, "", opID); serr != nil {
		o.setPhase(PhaseAborting)
		metrics.AbortsTotal.WithLabelValues(operation).Inc()
		o.release(context.WithoutCancel(ctx), logger, env, rec)
		return serr
	}
	metrics.SwitchesTotal.WithLabelValues(env.Name).Inc()

	o.setPhase(PhaseCleaningUp)
	o.release(ctx, logger, env, rec)
	logger.Info().Str("active", string(target)).Msg("traffic moved")
	return nil
}

// Cleanup scales the inactive group down to zero. Kept separate from
// deploy so a just-deployed standby stays warm until the operator decides
// rollback is no longer needed.
func (o *Orchestrator) Cleanup(ctx context.Context, env *types.Environment) (err error) {
	opID := uuid.New().String()
	logger := log.WithOperation(env.Name, "cleanup", opID)
	defer func() {
		metrics.OperationsTotal.WithLabelValues("cleanup", faults.Label(err)).Inc()
		o.setPhase(PhaseIdle)
	}()

	o.setPhase(PhaseResolving)
	res, rerr := resolver.Resolve(ctx, o.gw, env)
	if rerr != nil {
		return rerr
	}
	inactive := env.Group(res.Inactive)

	cur, cerr := o.gw.GroupCapacity(ctx, inactive.ScalingGroup)
	if cerr != nil {
		return cerr
	}
	if cur.Desired == 0 {
		logger.Info().Str("color", string(res.Inactive)).Msg("inactive group already at zero")
		return nil
	}

	o.setPhase(PhaseScalingInactive)
	if berr := o.gw.SetBounds(ctx, inactive.ScalingGroup, 0, cur.Max); berr != nil {
		return berr
	}
	if serr := o.gw.SetDesired(ctx, inactive.ScalingGroup, 0, ""); serr != nil {
		return serr
	}
	logger.Info().
		Str("color", string(res.Inactive)).
		Int32("was", cur.Desired).
		Msg("standby scaled to zero")
	return nil
}

// ShutdownOptions configures the shutdown operation.
type ShutdownOptions struct {
	SkipConfirmation bool
}

// Shutdown scales the active group to zero, taking the environment fully
// offline. It always demands a console-level confirmation unless
// suppression was requested explicitly.
func (o *Orchestrator) Shutdown(ctx context.Context, env *types.Environment, opts ShutdownOptions) (err error) {
	opID := uuid.New().String()
	logger := log.WithOperation(env.Name, "shutdown", opID)
	defer func() {
		metrics.OperationsTotal.WithLabelValues("shutdown", faults.Label(err)).Inc()
		o.setPhase(PhaseIdle)
	}()

	o.setPhase(PhaseResolving)
	res, rerr := resolver.Resolve(ctx, o.gw, env)
	if rerr != nil {
		return rerr
	}
	active := env.Group(res.Active)

	prompt := fmt.Sprintf("this takes %s FULLY OFFLINE (scales %s group %s to zero); continue?",
		env.Name, res.Active, active.ScalingGroup)
	if aerr := o.ask(opts.SkipConfirmation, prompt); aerr != nil {
		return aerr
	}

	cur, cerr := o.gw.GroupCapacity(ctx, active.ScalingGroup)
	if cerr != nil {
		return cerr
	}
	if berr := o.gw.SetBounds(ctx, active.ScalingGroup, 0, cur.Max); berr != nil {
		return berr
	}
	if serr := o.gw.SetDesired(ctx, active.ScalingGroup, 0, ""); serr != nil {
		return serr
	}
	logger.Warn().
		Str("color", string(res.Active)).
		Int32("was", cur.Desired).
		Msg("environment shut down")
	return nil
}
