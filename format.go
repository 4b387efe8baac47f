package main

import (
	"fmt"
	"os"

	"github.com/shanoir/shanoir-downloader/internal/progress"
	"github.com/shanoir/shanoir-downloader/internal/shanoir"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// fileSize returns the size of path for display, or "?" when it cannot be
// read.
func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}

	return progress.FormatBytes(info.Size())
}

// printSummary reports the outcome of a search download.
func printSummary(r shanoir.BatchResult) {
	for _, path := range r.Succeeded {
		statusf(flagQuiet, "  %s (%s)\n", path, fileSize(path))
	}

	if len(r.Failed) > 0 {
		statusf(flagQuiet, "%d of %d datasets failed, see the log for details: %v\n",
			len(r.Failed), r.Total(), r.Failed)

		return
	}

	statusf(flagQuiet, "Downloaded %d datasets\n", len(r.Succeeded))
}
