package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shanoir/shanoir-downloader/internal/progress"
	"github.com/shanoir/shanoir-downloader/internal/shanoir"
)

// idRequest collects the id flags of one run.
type idRequest struct {
	batchFile string              // --dataset_ids path
	batch     []shanoir.DatasetID // ids read from batchFile
	datasetID string
	studyID   string
	subjectID string
}

// readDatasetIDs reads one dataset id per line. Blank lines are skipped.
func readDatasetIDs(path string) ([]shanoir.DatasetID, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("given file does not exist: %s", path)
		}

		return nil, fmt.Errorf("reading dataset ids: %w", err)
	}
	defer f.Close()

	var ids []shanoir.DatasetID

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, shanoir.DatasetID(line))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset ids from %s: %w", path, err)
	}

	return ids, nil
}

// runSearch downloads every dataset of one page of search results. Failed
// items are logged and counted but do not fail the run.
func runSearch(ctx context.Context, client *shanoir.Client, dl *shanoir.Downloader, format shanoir.Format, logger *slog.Logger) error {
	q := shanoir.SearchQuery{
		Text:       flagSearchText,
		ExpertMode: flagExpertMode,
		Page:       flagPage,
		Size:       flagSize,
		Sort:       flagSort,
	}

	resp, err := client.Search(ctx, q)
	if err != nil {
		return err
	}

	result, err := dl.DownloadSearchResults(ctx, resp, format)
	if err != nil {
		return err
	}

	logger.Info("search download finished",
		slog.Int("downloaded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)

	printSummary(result)

	return nil
}

// runIDs performs the id-based downloads: the batch file first, then either
// the single dataset or the study/subject combination.
func runIDs(ctx context.Context, dl *shanoir.Downloader, req idRequest, format shanoir.Format, logger *slog.Logger) error {
	if req.batchFile != "" {
		if len(req.batch) == 0 {
			logger.Warn("dataset id file has no ids, nothing to download", slog.String("path", req.batchFile))
			statusLine("No dataset ids in " + req.batchFile)
		} else if _, err := dl.DownloadDatasets(ctx, req.batch, format); err != nil && !skippedBatch(err) {
			return downloadFailed(logger, err)
		}
	}

	if req.datasetID != "" {
		if _, err := dl.DownloadDataset(ctx, shanoir.DatasetID(req.datasetID), format); err != nil {
			return downloadFailed(logger, err)
		}

		return nil
	}

	var err error

	switch {
	case req.studyID != "" && req.subjectID != "":
		_, err = dl.DownloadDatasetsBySubjectAndStudy(ctx, req.subjectID, req.studyID, format)
	case req.studyID != "":
		_, err = dl.DownloadDatasetsByStudy(ctx, req.studyID, format)
	case req.subjectID != "":
		_, err = dl.DownloadDatasetsBySubject(ctx, req.subjectID, format)
	}

	if err != nil && !skippedBatch(err) {
		return downloadFailed(logger, err)
	}

	logger.Debug("id downloads finished")

	return nil
}

// downloadFailed records a fatal download error in the log, with the
// response details when the server answered, and hands it back for main.
func downloadFailed(logger *slog.Logger, err error) error {
	shanoir.LogError(logger, "download failed", err)

	return err
}

// skippedBatch reports whether err is the batch size policy. The downloader
// has already logged the warning, and the run goes on.
func skippedBatch(err error) bool {
	return errors.Is(err, shanoir.ErrBatchTooLarge)
}

// statusLine prints one status line to stderr unless --quiet is set.
func statusLine(msg string) {
	statusf(flagQuiet, "%s\n", msg)
}

// progressTracker adapts a progress bar to the downloader.
type progressTracker struct {
	reporter *progress.Reporter
}

func (p progressTracker) Track(name string, total int64) shanoir.ProgressTracker {
	return p.reporter.Track(name, total)
}

// progressReporter returns a reporter drawing on stderr when it is a
// terminal, or nil so downloads are buffered.
func progressReporter() shanoir.ProgressReporter {
	if flagQuiet || !progress.IsTerminal(os.Stderr) {
		return nil
	}

	return progressTracker{reporter: &progress.Reporter{Out: os.Stderr}}
}
