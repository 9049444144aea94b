package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"success", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"state unavailable", ErrStateUnavailable, ExitStateUnavailable},
		{"state inconsistent", ErrStateInconsistent, ExitStateInconsistent},
		{"health timeout", ErrHealthTimeout, ExitHealthTimeout},
		{"switch failed", ErrSwitchFailed, ExitSwitchFailed},
		{"discovery required", ErrDiscoveryRequired, ExitDiscoveryRequired},
		{"user aborted", ErrUserAborted, ExitUserAborted},
		{"persistence lag", ErrStatePersistenceLag, ExitStatePersistenceLag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCode(tt.err))
		})
	}
}

func TestExitCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("deploy staging: %w", fmt.Errorf("%w: rule rejected", ErrSwitchFailed))
	assert.Equal(t, ExitSwitchFailed, ExitCode(err))
	assert.Equal(t, "switch_failed", Label(err))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "success", Label(nil))
	assert.Equal(t, "error", Label(errors.New("boom")))
	assert.Equal(t, "health_timeout", Label(fmt.Errorf("%w: routing lagging", ErrHealthTimeout)))
}
