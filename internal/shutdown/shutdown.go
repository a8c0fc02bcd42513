// Package shutdown coordinates graceful process termination: the
// first OS signal starts a graceful drop sequence, a second signal
// forces an immediate exit.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

// Coordinator subscribes to OS signals and runs a graceful shutdown
// sequence on the first one, forcing process exit on a second.
type Coordinator struct {
	logger *slog.Logger
	sigCh  chan os.Signal

	triggered chan struct{} // closed once, on the first handled signal
	graceful  func(context.Context)

	// exitFunc is os.Exit by default; overridable in tests so a forced
	// exit path can be exercised without killing the test binary.
	exitFunc func(code int)
}

// New builds a Coordinator. graceful is run once, in its own
// goroutine, the first time a subscribed signal arrives; it should
// drop plugins, close the driver, and flush persisted state.
func New(logger *slog.Logger, graceful func(context.Context)) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		logger:    logger,
		sigCh:     make(chan os.Signal, 2),
		triggered: make(chan struct{}),
		graceful:  graceful,
		exitFunc:  os.Exit,
	}
}

// Watch subscribes to sigs (typically SIGINT, SIGTERM) and blocks
// until ctx is canceled, running the coordinator's signal-handling
// loop in the meantime.
func (c *Coordinator) Watch(ctx context.Context, sigs ...os.Signal) {
	signal.Notify(c.sigCh, sigs...)
	defer signal.Stop(c.sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-c.sigCh:
			c.handle(ctx, sig)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, sig os.Signal) {
	select {
	case <-c.triggered:
		// Second (or later) signal: the operator asked twice, so the
		// first request evidently did not get them out fast enough.
		c.logger.Warn("received second shutdown signal, forcing exit", "signal", sig)
		c.exitFunc(1)
		return
	default:
	}

	close(c.triggered)
	c.logger.Info("received shutdown signal, dropping plugins", "signal", sig)
	go func() {
		c.graceful(ctx)
		c.logger.Info("graceful shutdown complete")
	}()
}
