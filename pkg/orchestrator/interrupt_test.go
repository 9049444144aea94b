package orchestrator

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every command defers the cancel func on normal completion, so tearing
// the watcher down must never panic it. A crash in the watcher goroutine
// would take the whole test binary down, so surviving the loop is the
// assertion.
func TestWithInterruptCancelReleasesWatcher(t *testing.T) {
	for i := 0; i < 500; i++ {
		ctx, cancel := WithInterrupt(context.Background())
		cancel()
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context not cancelled after cancel func")
		}
	}
	// Give any lagging watcher goroutines a chance to observe the closed
	// channel before the test ends.
	time.Sleep(50 * time.Millisecond)
}

func TestWithInterruptCancelIsIdempotent(t *testing.T) {
	ctx, cancel := WithInterrupt(context.Background())
	cancel()
	cancel() // deferred and explicit cancel may both run
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWithInterruptSignalCancelsContext(t *testing.T) {
	ctx, cancel := WithInterrupt(context.Background())
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after termination signal")
	}
}
