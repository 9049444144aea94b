// Package faults defines the error taxonomy for cutover operations and the
// mapping from faults to process exit codes. Faults are sentinel errors:
// callers wrap them with context via fmt.Errorf and classify with errors.Is.
package faults

import "errors"

var (
	// ErrStateUnavailable: persisted deployment state is missing or corrupt.
	// Fatal; requires a manual seed of the state record.
	ErrStateUnavailable = errors.New("deployment state unavailable")

	// ErrStateInconsistent: persisted state disagrees with the live
	// forwarding rule. Fatal; never auto-resolved.
	ErrStateInconsistent = errors.New("deployment state inconsistent with live routing")

	// ErrHealthTimeout: the target group never reached quorum on both
	// health signals. Capacity is left in place for inspection; capacity
	// protection is still released.
	ErrHealthTimeout = errors.New("health quorum not reached before timeout")

	// ErrSwitchFailed: the forwarding rule update was rejected. The rule
	// update is all-or-nothing at the gateway, so no partial traffic
	// change is assumed.
	ErrSwitchFailed = errors.New("traffic switch rejected")

	// ErrStatePersistenceLag: traffic moved but the state record write
	// failed afterwards. Flagged for validate; not auto-corrected.
	ErrStatePersistenceLag = errors.New("traffic switched but state record not persisted")

	// ErrDiscoveryRequired: high-trust environment, version has no
	// discovery data and no copy path. Blocks even non-interactive runs.
	ErrDiscoveryRequired = errors.New("discovery data required")

	// ErrUserAborted: explicit decline at a confirmation prompt.
	ErrUserAborted = errors.New("aborted by operator")
)

// Exit codes. 0 is success, 1 is a generic failure; faults in the taxonomy
// get distinct codes so automation can branch on them.
const (
	ExitOK                  = 0
	ExitFailure             = 1
	ExitStateUnavailable    = 2
	ExitStateInconsistent   = 3
	ExitHealthTimeout       = 4
	ExitSwitchFailed        = 5
	ExitDiscoveryRequired   = 6
	ExitUserAborted         = 7
	ExitStatePersistenceLag = 8
)

// Label returns a short stable name for an error, for metric labels.
func Label(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrStateUnavailable):
		return "state_unavailable"
	case errors.Is(err, ErrStateInconsistent):
		return "state_inconsistent"
	case errors.Is(err, ErrHealthTimeout):
		return "health_timeout"
	case errors.Is(err, ErrSwitchFailed):
		return "switch_failed"
	case errors.Is(err, ErrStatePersistenceLag):
		return "state_persistence_lag"
	case errors.Is(err, ErrDiscoveryRequired):
		return "discovery_required"
	case errors.Is(err, ErrUserAborted):
		return "user_aborted"
	default:
		return "error"
	}
}

// ExitCode maps an error to its process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrStateUnavailable):
		return ExitStateUnavailable
	case errors.Is(err, ErrStateInconsistent):
		return ExitStateInconsistent
	case errors.Is(err, ErrHealthTimeout):
		return ExitHealthTimeout
	case errors.Is(err, ErrSwitchFailed):
		return ExitSwitchFailed
	case errors.Is(err, ErrDiscoveryRequired):
		return ExitDiscoveryRequired
	case errors.Is(err, ErrUserAborted):
		return ExitUserAborted
	case errors.Is(err, ErrStatePersistenceLag):
		return ExitStatePersistenceLag
	default:
		return ExitFailure
	}
}
