package shanoir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ErrReadTimeout is returned by a response body that received no data for
// longer than the client's read timeout.
var ErrReadTimeout = errors.New("shanoir: no data received before the read timeout")

// idleBody cancels its request when a Read makes no progress for timeout.
// Every successful Read pushes the deadline back, so a slow but steady
// download is never cut.
type idleBody struct {
	rc      io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer
	expired atomic.Bool
}

// watchBody wraps rc so that cancel runs on Close, and after timeout of
// silence when timeout is positive.
func watchBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{rc: rc, timeout: timeout, cancel: cancel}

	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() {
			b.expired.Store(true)
			cancel()
		})
	}

	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)

	if b.expired.Load() {
		return n, fmt.Errorf("%w (%s)", ErrReadTimeout, b.timeout)
	}

	if n > 0 && b.timer != nil {
		b.timer.Reset(b.timeout)
	}

	return n, err
}

func (b *idleBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}

	err := b.rc.Close()
	b.cancel()

	return err
}
