package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cloudshift/cutover/pkg/log"
)

// WithInterrupt returns a context cancelled on SIGINT/SIGTERM. The first
// signal cancels the operation, which drives the state machine into its
// abort path; the process exits only after that path has restored bounds.
// Further signals while the abort sequence runs are logged and ignored:
// the cleanup sequence is not itself interruptible.
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger := log.WithComponent("interrupt")
		aborting := false
		// Range ends when the returned cancel func closes ch, after
		// signal.Stop has guaranteed no further sends.
		for sig := range ch {
			if aborting {
				logger.Warn().
					Str("signal", sig.String()).
					Msg("already aborting; signal ignored")
				continue
			}
			aborting = true
			logger.Warn().
				Str("signal", sig.String()).
				Msg("termination signal received; aborting and restoring capacity bounds")
			cancel()
		}
	}()

	var stop sync.Once
	return ctx, func() {
		stop.Do(func() {
			signal.Stop(ch)
			close(ch)
		})
		cancel()
	}
}
