package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInterruptible_SignalCancelsWithCause(t *testing.T) {
	saveLogFlags(t)
	flagQuiet = true

	ctx, stop := interruptible(context.Background(), quietLogger())
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, context.Cause(ctx), errInterrupted)
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled within 2 seconds of SIGTERM")
	}
}

func TestInterruptible_StopCancelsWithoutCause(t *testing.T) {
	ctx, stop := interruptible(context.Background(), quietLogger())
	assert.NoError(t, ctx.Err())

	stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.NotErrorIs(t, context.Cause(ctx), errInterrupted)
}

func TestInterruptible_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())

	ctx, stop := interruptible(parent, quietLogger())
	defer stop()

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled within 2 seconds of parent cancel")
	}
}

func TestInterruptedError(t *testing.T) {
	boom := errors.New("read failed")

	plain, cancel := context.WithCancelCause(context.Background())
	cancel(nil)
	assert.Equal(t, boom, interruptedError(plain, boom))

	user, cancel := context.WithCancelCause(context.Background())
	cancel(errInterrupted)

	err := interruptedError(user, boom)
	assert.ErrorIs(t, err, errInterrupted)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, interruptedError(user, nil))
}
