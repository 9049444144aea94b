package storage

import (
	"time"

	"github.com/cloudshift/cutover/pkg/types"
)

// Store is the local record store: capacity-protection checkpoints written
// while an operation holds a group pinned, and the journal of completed
// traffic switches. It is an operator aid, not a second source of truth;
// the persisted deployment state in the gateway remains authoritative.
type Store interface {
	// Checkpoints
	SaveCheckpoint(rec *types.CapacityProtectionRecord) error
	DeleteCheckpoint(id string) error
	ListCheckpoints() ([]*types.CapacityProtectionRecord, error)
	// StaleCheckpoints returns checkpoints older than maxAge, left behind
	// by processes that died while holding protection.
	StaleCheckpoints(maxAge time.Duration) ([]*types.CapacityProtectionRecord, error)

	// Switch journal
	AppendSwitch(rec *types.SwitchRecord) error
	RecentSwitches(environment string, limit int) ([]*types.SwitchRecord, error)

	Close() error
}
