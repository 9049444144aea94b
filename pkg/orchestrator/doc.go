/*
Package orchestrator implements the deployment state machine for blue/green
fleet cutover.

A deploy moves through the phases

	Idle -> Resolving -> Protecting -> ScalingInactive -> VerifyingHealth
	     -> Switching -> CleaningUp -> Idle

with Aborting reachable from any in-progress phase. The abort path always
restores the protected capacity bounds, resets the min bound of a group
this run freshly scaled up, and re-raises the originating fault. Narrower
operations (switch, rollback, cleanup, shutdown, validate, status) are
built from the same primitives.

Interruption is cancellation: every blocking wait takes a context, and
WithInterrupt converts termination signals into cancellation at the top of
the call stack rather than special-casing signals deep inside it. All
mutating steps are strictly sequential within an operation; only status
reads fan out across the two colors.

The orchestrator holds no per-environment globals. Environments are passed
into each operation, so several environments are safely operable from one
process.
*/
package orchestrator
