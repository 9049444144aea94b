package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudshift/cutover/pkg/discovery"
	"github.com/cloudshift/cutover/pkg/faults"
	"github.com/cloudshift/cutover/pkg/gateway"
	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/metrics"
	"github.com/cloudshift/cutover/pkg/protect"
	"github.com/cloudshift/cutover/pkg/resolver"
	"github.com/cloudshift/cutover/pkg/storage"
	"github.com/cloudshift/cutover/pkg/switcher"
	"github.com/cloudshift/cutover/pkg/types"
	"github.com/cloudshift/cutover/pkg/verifier"
)

// Phase is the orchestrator's position in the operation state machine.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseResolving       Phase = "resolving"
	PhaseProtecting      Phase = "protecting"
	PhaseScalingInactive Phase = "scaling-inactive"
	PhaseVerifyingHealth Phase = "verifying-health"
	PhaseSwitching       Phase = "switching"
	PhaseCleaningUp      Phase = "cleaning-up"
	PhaseAborting        Phase = "aborting"
)

const timeRound = time.Second

// Orchestrator sequences protection, scale-up, health verification, traffic
// switching and cleanup over externally provisioned resources. One
// Orchestrator may serve multiple environments; all per-operation state is
// local to each call.
type Orchestrator struct {
	gw       gateway.Gateway
	store    storage.Store // optional local record store
	gate     *discovery.Gate
	confirm  Confirmer // nil means non-interactive
	switcher *switcher.Switcher

	mu    sync.Mutex
	phase Phase
}

// New creates an Orchestrator. store, gate and confirm may be nil: no local
// records, no discovery copy source, and a non-interactive session
// respectively.
func New(gw gateway.Gateway, store storage.Store, gate *discovery.Gate, confirm Confirmer) *Orchestrator {
	if gate == nil {
		gate = discovery.NewGate(gw, nil)
	}
	return &Orchestrator{
		gw:       gw,
		store:    store,
		gate:     gate,
		confirm:  confirm,
		switcher: switcher.New(gw, store),
		phase:    PhaseIdle,
	}
}

// Phase returns the current state-machine phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// ask prompts the operator unless confirmation is suppressed. A nil
// confirmer declines: unattended runs must pass the suppression flag
// explicitly rather than having prompts auto-accepted.
func (o *Orchestrator) ask(skip bool, prompt string) error {
	if skip {
		return nil
	}
	if o.confirm == nil {
		return fmt.Errorf("%w: confirmation required but session is non-interactive", faults.ErrUserAborted)
	}
	ok, err := o.confirm.Confirm(prompt)
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return faults.ErrUserAborted
	}
	return nil
}

func (o *Orchestrator) gateOptions(skip bool) discovery.Options {
	opts := discovery.Options{SkipConfirmation: skip}
	if o.confirm != nil {
		opts.Confirm = o.confirm.Confirm
	}
	return opts
}

// DeployOptions configures a deploy operation.
type DeployOptions struct {
	// Version is the opaque artifact identifier to roll out.
	Version string

	// Capacity is the desired instance count for the target color.
	// Zero means mirror the active group's current size.
	Capacity int32

	// SkipConfirmation suppresses interactive prompts. Refused by the
	// discovery gate when discovery data is unresolved.
	SkipConfirmation bool

	// SkipSwitch stops after health verification, leaving the standby
	// scaled up and unswitched.
	SkipSwitch bool
}

// Deploy runs the full state machine: resolve colors, gate on discovery
// data, protect the active group, scale the inactive group, await health
// quorum, switch traffic, and restore bounds. The standby is deliberately
// left warm for instant rollback; scaling it down is the separate cleanup
// operation.
func (o *Orchestrator) Deploy(ctx context.Context, env *types.Environment, opts DeployOptions) (err error) {
	opID := uuid.New().String()
	logger := log.WithOperation(env.Name, "deploy", opID)
	timer := metrics.NewTimer()
	defer func() {
		metrics.OperationsTotal.WithLabelValues("deploy", faults.Label(err)).Inc()
		timer.ObserveDurationVec(metrics.OperationDuration, "deploy")
		o.setPhase(PhaseIdle)
	}()

	logger.Info().Str("version", opts.Version).Msg("starting deployment")

	o.setPhase(PhaseResolving)
	res, rerr := resolver.Resolve(ctx, o.gw, env)
	if rerr != nil {
		return rerr
	}
	active := env.Group(res.Active)
	inactive := env.Group(res.Inactive)
	logger.Info().
		Str("active", string(res.Active)).
		Str("inactive", string(res.Inactive)).
		Msg("color state resolved")

	// The discovery gate runs before any capacity mutation, protection
	// included: a refused deploy must leave the fleet untouched.
	if gerr := o.gate.Check(ctx, env, opts.Version, o.gateOptions(opts.SkipConfirmation)); gerr != nil {
		return gerr
	}

	o.setPhase(PhaseProtecting)
	rec, perr := protect.Protect(ctx, o.gw, env.Name, active)
	if perr != nil {
		return perr
	}
	metrics.ProtectionActive.WithLabelValues(env.Name).Set(1)
	o.checkpoint(logger, rec)

	var (
		freshlyScaled bool
		scaledUp      bool
		inactiveMax   int32
	)

	abort := func(cause error) error {
		o.setPhase(PhaseAborting)
		metrics.AbortsTotal.WithLabelValues("deploy").Inc()
		logger.Warn().Err(cause).Msg("aborting deployment")

		// Cleanup must run even when the operation context is cancelled.
		actx := context.WithoutCancel(ctx)
		o.release(actx, logger, env, rec)

		// A group freshly scaled up by this run gets its min bound reset
		// to zero; a group that pre-existed with capacity is left alone,
		// it may be carrying traffic.
		if freshlyScaled && scaledUp {
			if berr := o.gw.SetBounds(actx, inactive.ScalingGroup, 0, inactiveMax); berr != nil {
				logger.Error().Err(berr).Msg("failed to reset inactive group bounds")
			}
		}
		return cause
	}

	o.setPhase(PhaseScalingInactive)
	cur, cerr := o.gw.GroupCapacity(ctx, inactive.ScalingGroup)
	if cerr != nil {
		return abort(cerr)
	}
	want := opts.Capacity
	if want <= 0 {
		want = rec.PinnedAt // mirror the active group's size
	}
	if want <= 0 {
		// Mirroring a shut-down environment would verify health against
		// zero instances and hand traffic to an empty group.
		return abort(fmt.Errorf("active %s group is at zero capacity; pass an explicit capacity to bring %s online", active.Color, inactive.Color))
	}
	freshlyScaled = cur.Desired == 0
	inactiveMax = cur.Max
	if inactiveMax < want {
		inactiveMax = want
	}

	if cur.Desired > 0 {
		logger.Warn().
			Int32("instances", cur.Desired).
			Str("color", string(res.Inactive)).
			Msg("inactive group already has instances; use switch to take them live as-is, rollback, or cleanup first")
		prompt := fmt.Sprintf("%s already has %d instance(s); replace them with version %s?",
			inactive.ScalingGroup, cur.Desired, opts.Version)
		if aerr := o.ask(opts.SkipConfirmation, prompt); aerr != nil {
			return abort(aerr)
		}
	}

	if cur.Max < want {
		if berr := o.gw.SetBounds(ctx, inactive.ScalingGroup, cur.Min, want); berr != nil {
			return abort(berr)
		}
	}
	if serr := o.gw.SetDesired(ctx, inactive.ScalingGroup, want, opts.Version); serr != nil {
		return abort(serr)
	}
	scaledUp = true
	logger.Info().Int32("capacity", want).Msg("inactive group scaling up")

	o.setPhase(PhaseVerifyingHealth)
	report, verr := verifier.AwaitHealthy(ctx, o.gw, inactive, want, verifier.Options{
		Interval: env.HealthPollInterval,
		Timeout:  env.HealthTimeout,
	})
	metrics.HealthWaitDuration.WithLabelValues(env.Name).Observe(report.Elapsed.Seconds())
	if verr != nil {
		return abort(verr)
	}
	if !report.Healthy {
		metrics.HealthTimeouts.WithLabelValues(env.Name, string(report.Lagging)).Inc()
		// Scaled-up capacity is left in place for inspection; only the
		// protection bounds are restored by the abort path.
		return abort(fmt.Errorf("%w: %s lagging, fleet %d/%d routing %d/%d after %s",
			faults.ErrHealthTimeout, report.Lagging,
			report.FleetHealthy, report.Desired,
			report.RouteHealthy, report.Desired,
			report.Elapsed.Round(timeRound)))
	}
	logger.Info().
		Int32("fleet_healthy", report.FleetHealthy).
		Int32("route_healthy", report.RouteHealthy).
		Msg("health quorum reached")

	if opts.SkipSwitch {
		o.setPhase(PhaseCleaningUp)
		o.release(ctx, logger, env, rec)
		logger.Info().Msg("deployment ready; traffic switch skipped")
		return nil
	}

	o.setPhase(PhaseSwitching)
	if serr := o.switcher.SwitchTo(ctx, env, res.Inactive, opts.Version, opID); serr != nil {
		if errors.Is(serr, faults.ErrStatePersistenceLag) {
			// Traffic has moved; the freshly scaled group is live and must
			// not have its bounds reset. Release protection and surface
			// the lag for a human to reconcile.
			o.release(context.WithoutCancel(ctx), logger, env, rec)
			return serr
		}
		return abort(serr)
	}
	metrics.SwitchesTotal.WithLabelValues(env.Name).Inc()

	o.setPhase(PhaseCleaningUp)
	o.release(ctx, logger, env, rec)
	logger.Info().
		Str("active", string(res.Inactive)).
		Str("standby", string(res.Active)).
		Msg("deployment complete; standby left warm for rollback")
	return nil
}

// checkpoint persists a protection record locally so validate can find it
// if this process dies while holding protection.
func (o *Orchestrator) checkpoint(logger zerolog.Logger, rec *types.CapacityProtectionRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveCheckpoint(rec); err != nil {
		logger.Warn().Err(err).Msg("failed to checkpoint protection record")
	}
}

// release restores protected bounds and clears the local checkpoint. Safe
// to call more than once.
func (o *Orchestrator) release(ctx context.Context, logger zerolog.Logger, env *types.Environment, rec *types.CapacityProtectionRecord) {
	if err := protect.Restore(ctx, o.gw, rec); err != nil {
		// Bounds stay pinned; the checkpoint is kept so validate can
		// report and clear it later.
		logger.Error().Err(err).Msg("failed to restore capacity bounds")
		return
	}
	metrics.ProtectionActive.WithLabelValues(env.Name).Set(0)
	if o.store != nil && rec != nil {
		if err := o.store.DeleteCheckpoint(rec.ID); err != nil {
			logger.Warn().Err(err).Msg("failed to clear protection checkpoint")
		}
	}
}
