package shanoir

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// File system permissions for downloaded data.
const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// chunkSize is the read size when streaming a download through a progress
// tracker.
const chunkSize = 64 * 1024

// ProgressTracker receives the bytes of one download as they are written.
type ProgressTracker interface {
	io.Writer
	Finish()
}

// ProgressReporter starts a tracker for each downloaded file. total is the
// Content-Length, or -1 when unknown.
type ProgressReporter interface {
	Track(name string, total int64) ProgressTracker
}

// saveResponse writes the body of resp into the output folder under the name announced by
// the server and returns the final path. The body is always closed.
// The file appears at its final path only once it is complete.
func (d *Downloader) saveResponse(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	name, err := filenameFromHeader(resp.Header)
	if err != nil {
		return "", fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
	}

	dir := d.outputDir
	if mkErr := os.MkdirAll(dir, dirPerms); mkErr != nil {
		return "", fmt.Errorf("shanoir: creating output folder %s: %w", dir, mkErr)
	}

	dest := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("shanoir: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := d.writeBody(tmp, dest, resp)
	if err != nil {
		tmp.Close()
		return "", err
	}

	if err := tmp.Chmod(filePerms); err != nil {
		tmp.Close()
		return "", fmt.Errorf("shanoir: setting permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("shanoir: closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("shanoir: renaming into %s: %w", dest, err)
	}

	success = true

	d.logger.Info("file written",
		slog.String("path", dest),
		slog.Int64("bytes", n),
	)

	return dest, nil
}

// writeBody copies the response body into f. With a progress reporter the
// body is streamed in chunks; without one it is read whole and written in a
// single call.
func (d *Downloader) writeBody(f *os.File, dest string, resp *http.Response) (int64, error) {
	if d.progress == nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("shanoir: reading download body: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			return 0, fmt.Errorf("shanoir: writing %s: %w", dest, err)
		}

		return int64(len(data)), nil
	}

	tracker := d.progress.Track(dest, resp.ContentLength)
	defer tracker.Finish()

	var written int64

	buf := make([]byte, chunkSize)
	for {
		nr, readErr := resp.Body.Read(buf)
		if nr > 0 {
			if _, err := f.Write(buf[:nr]); err != nil {
				return written, fmt.Errorf("shanoir: writing %s: %w", dest, err)
			}

			_, _ = tracker.Write(buf[:nr])
			written += int64(nr)
		}

		if readErr == io.EOF {
			return written, nil
		}

		if readErr != nil {
			d.logger.Error("streaming download failed",
				slog.String("path", dest),
				slog.Int64("bytes_before_error", written),
				slog.String("error", readErr.Error()),
			)

			return written, fmt.Errorf("shanoir: streaming download body: %w", readErr)
		}
	}
}
