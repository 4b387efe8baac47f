package shanoir

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
)

const datasetsPath = "/shanoir-ng/datasets/datasets"

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// OutputDir receives every downloaded file. Created on first use.
	OutputDir string
	// Progress, if set, streams downloads through a progress tracker.
	Progress ProgressReporter
	// Status, if set, receives short human-readable progress lines.
	Status func(msg string)
}

// Downloader fetches datasets through a Client and writes them to the
// output folder.
type Downloader struct {
	client    *Client
	outputDir string
	progress  ProgressReporter
	status    func(string)
	logger    *slog.Logger
}

// NewDownloader creates a Downloader that issues its requests through client.
func NewDownloader(client *Client, cfg DownloaderConfig) *Downloader {
	status := cfg.Status
	if status == nil {
		status = func(string) {}
	}

	return &Downloader{
		client:    client,
		outputDir: cfg.OutputDir,
		progress:  cfg.Progress,
		status:    status,
		logger:    client.logger,
	}
}

// DownloadDataset downloads one dataset and returns the written path.
func (d *Downloader) DownloadDataset(ctx context.Context, id DatasetID, format Format) (string, error) {
	d.status("Downloading dataset " + id.String())
	d.logger.Info("downloading dataset",
		slog.String("dataset_id", id.String()),
		slog.String("format", string(format)),
	)

	resp, err := d.client.Do(ctx, http.MethodGet,
		datasetsPath+"/download/"+url.PathEscape(id.String()),
		RequestOptions{Query: url.Values{"format": {format.QueryValue()}}},
	)
	if err != nil {
		return "", fmt.Errorf("shanoir: downloading dataset %s: %w", id, err)
	}

	return d.saveResponse(resp)
}

// DownloadDatasets downloads up to MaxBatchSize datasets as one archive.
// Larger batches are refused with ErrBatchTooLarge before any request.
func (d *Downloader) DownloadDatasets(ctx context.Context, ids []DatasetID, format Format) (string, error) {
	if len(ids) > MaxBatchSize {
		d.logger.Warn("cannot download more than 50 datasets at once, use --search_text to download the datasets one by one",
			slog.Int("count", len(ids)),
			slog.Int("max", MaxBatchSize),
		)

		return "", fmt.Errorf("%w: %d datasets, at most %d allowed", ErrBatchTooLarge, len(ids), MaxBatchSize)
	}

	list := joinIDs(ids)

	d.status("Downloading datasets " + list)
	d.logger.Info("downloading datasets",
		slog.Int("count", len(ids)),
		slog.String("format", string(format)),
	)

	params := url.Values{
		"datasetIds": {list},
		"format":     {format.QueryValue()},
	}

	body, contentType, err := multipartForm(params)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(ctx, http.MethodPost, datasetsPath+"/massiveDownload", RequestOptions{
		Query:       params,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("shanoir: downloading %d datasets: %w", len(ids), err)
	}

	return d.saveResponse(resp)
}

// DownloadDatasetsByStudy downloads every dataset of a study as one archive.
func (d *Downloader) DownloadDatasetsByStudy(ctx context.Context, studyID string, format Format) (string, error) {
	d.status("Downloading datasets from study " + studyID)
	d.logger.Info("downloading study", slog.String("study_id", studyID))

	resp, err := d.client.Do(ctx, http.MethodGet, datasetsPath+"/massiveDownloadByStudy", RequestOptions{
		Query: url.Values{
			"studyId": {studyID},
			"format":  {format.QueryValue()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("shanoir: downloading study %s: %w", studyID, err)
	}

	return d.saveResponse(resp)
}

// FindDatasetIDsBySubject lists the datasets of a subject.
func (d *Downloader) FindDatasetIDsBySubject(ctx context.Context, subjectID string) ([]DatasetID, error) {
	d.status("Getting datasets from subject " + subjectID)

	return d.findDatasetIDs(ctx, datasetsPath+"/subject/"+url.PathEscape(subjectID))
}

// FindDatasetIDsBySubjectAndStudy lists the datasets of a subject within
// one study.
func (d *Downloader) FindDatasetIDsBySubjectAndStudy(ctx context.Context, subjectID, studyID string) ([]DatasetID, error) {
	d.status("Getting datasets from subject " + subjectID + " and study " + studyID)

	return d.findDatasetIDs(ctx,
		datasetsPath+"/subject/"+url.PathEscape(subjectID)+"/study/"+url.PathEscape(studyID))
}

func (d *Downloader) findDatasetIDs(ctx context.Context, path string) ([]DatasetID, error) {
	resp, err := d.client.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("shanoir: listing datasets: %w", err)
	}

	var ids []DatasetID
	if err := resp.JSON(&ids); err != nil {
		return nil, err
	}

	d.logger.Debug("datasets found", slog.String("path", path), slog.Int("count", len(ids)))

	return ids, nil
}

// DownloadDatasetsBySubject downloads every dataset of a subject as one
// archive, subject to MaxBatchSize.
func (d *Downloader) DownloadDatasetsBySubject(ctx context.Context, subjectID string, format Format) (string, error) {
	ids, err := d.FindDatasetIDsBySubject(ctx, subjectID)
	if err != nil {
		return "", err
	}

	return d.DownloadDatasets(ctx, ids, format)
}

// DownloadDatasetsBySubjectAndStudy downloads the datasets of a subject
// within one study as one archive, subject to MaxBatchSize.
func (d *Downloader) DownloadDatasetsBySubjectAndStudy(ctx context.Context, subjectID, studyID string, format Format) (string, error) {
	ids, err := d.FindDatasetIDsBySubjectAndStudy(ctx, subjectID, studyID)
	if err != nil {
		return "", err
	}

	return d.DownloadDatasets(ctx, ids, format)
}

// multipartForm encodes params as a multipart/form-data body.
func multipartForm(params url.Values) ([]byte, string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)
	for _, key := range []string{"datasetIds", "format"} {
		if err := w.WriteField(key, params.Get(key)); err != nil {
			return nil, "", fmt.Errorf("shanoir: encoding form field %s: %w", key, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("shanoir: encoding form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
