package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// exitInterrupted is the conventional status of a process stopped by SIGINT.
const exitInterrupted = 130

// errInterrupted is the cancel cause of a run stopped by the user.
var errInterrupted = errors.New("interrupted")

// interruptible derives a context that the first SIGINT or SIGTERM cancels
// with errInterrupted. The download in flight then fails and its partial
// file is removed. A second signal exits immediately. stop releases the
// signal handler and must be called once the run is over.
func interruptible(parent context.Context, logger *slog.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			statusLine("Interrupted, cleaning up (press Ctrl-C again to quit now)")
			logger.Warn("download interrupted", slog.String("signal", sig.String()))
			cancel(errInterrupted)
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, exiting without cleanup", slog.String("signal", sig.String()))
			os.Exit(exitInterrupted)
		case <-done:
		}
	}()

	return ctx, func() {
		close(done)
		cancel(nil)
	}
}

// interruptedError marks err as caused by the user when ctx was canceled by
// a signal, so main can pick the exit status.
func interruptedError(ctx context.Context, err error) error {
	if err == nil || !errors.Is(context.Cause(ctx), errInterrupted) {
		return err
	}

	return errors.Join(errInterrupted, err)
}
