// Package progress draws single-line download progress bars on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Rendering constants.
const (
	barWidth       = 30
	redrawInterval = 100 * time.Millisecond
	percentScale   = 100
)

// IsTerminal reports whether f is attached to a terminal, which is the only
// case where a carriage-return progress bar makes sense.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Reporter creates progress bars that draw on Out.
type Reporter struct {
	Out io.Writer
}

// Track starts a bar for one file. total <= 0 means the size is unknown.
// The returned value satisfies shanoir.ProgressTracker.
func (r *Reporter) Track(name string, total int64) *Bar {
	return New(r.Out, name, total)
}

// Bar counts bytes written through it and redraws at most every
// redrawInterval.
type Bar struct {
	out   io.Writer
	label string
	total int64
	now   func() time.Time

	mu       sync.Mutex
	written  int64
	lastDraw time.Time
	finished bool
}

// New creates a Bar labelled with the base name of name.
func New(out io.Writer, name string, total int64) *Bar {
	return &Bar{
		out:   out,
		label: filepath.Base(name),
		total: total,
		now:   time.Now,
	}
}

// Write records len(p) bytes of progress. It never fails, so it can sit in
// an io.MultiWriter next to the destination file.
func (b *Bar) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.written += int64(len(p))

	if t := b.now(); t.Sub(b.lastDraw) >= redrawInterval {
		b.lastDraw = t
		b.draw()
	}

	return len(p), nil
}

// Written returns the number of bytes seen so far.
func (b *Bar) Written() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.written
}

// Finish draws the final state and ends the line. Safe to call twice.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return
	}

	b.finished = true
	b.draw()
	fmt.Fprintln(b.out)
}

func (b *Bar) draw() {
	if b.total <= 0 {
		fmt.Fprintf(b.out, "\r%s: %s", b.label, FormatBytes(b.written))
		return
	}

	done := min(b.written, b.total)
	filled := int(done * barWidth / b.total)
	pct := done * percentScale / b.total

	fmt.Fprintf(b.out, "\r%s: %3d%% |%s%s| %s/%s",
		b.label, pct,
		strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled),
		FormatBytes(b.written), FormatBytes(b.total))
}

// FormatBytes formats byte counts in binary units (KiB, MiB, GiB).
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}

	return humanize.IBytes(uint64(n))
}
