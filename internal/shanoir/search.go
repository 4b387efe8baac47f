package shanoir

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

const solrPath = "/shanoir-ng/datasets/solr"

// searchRequest is the JSON body of a Solr search.
type searchRequest struct {
	ExpertMode bool   `json:"expertMode"`
	SearchText string `json:"searchText"`
}

// Search runs a Solr search and returns the raw page response. Decode it
// with Page.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*Response, error) {
	query := url.Values{
		"page": {strconv.Itoa(q.Page)},
		"size": {strconv.Itoa(q.Size)},
		"sort": {q.Sort},
	}

	c.logger.Info("searching datasets",
		slog.String("search_text", q.Text),
		slog.Bool("expert_mode", q.ExpertMode),
		slog.Int("page", q.Page),
		slog.Int("size", q.Size),
	)

	resp, err := c.Post(ctx, solrPath, query, searchRequest{
		ExpertMode: q.ExpertMode,
		SearchText: q.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("shanoir: searching %q: %w", q.Text, err)
	}

	return resp, nil
}

// Page decodes the body as one page of search results.
func (r *Response) Page() (*SearchPage, error) {
	var page SearchPage
	if err := r.JSON(&page); err != nil {
		return nil, err
	}

	return &page, nil
}

// BatchResult summarizes a loop of individual downloads.
type BatchResult struct {
	Succeeded []string    // written paths
	Failed    []DatasetID // ids whose download failed
}

// Total is the number of downloads attempted.
func (b BatchResult) Total() int {
	return len(b.Succeeded) + len(b.Failed)
}

// DownloadSearchResults downloads every dataset of a search page one by one.
// Nothing happens unless the search answered 200. A failed item is logged
// and skipped; only context cancellation stops the loop early.
func (d *Downloader) DownloadSearchResults(ctx context.Context, resp *Response, format Format) (BatchResult, error) {
	var result BatchResult

	if !resp.OK() {
		d.logger.Warn("search did not succeed, nothing to download",
			slog.Int("status", resp.StatusCode),
		)

		return result, nil
	}

	page, err := resp.Page()
	if err != nil {
		return result, err
	}

	d.logger.Info("search results",
		slog.Int("count", len(page.Content)),
		slog.Int64("total_elements", page.TotalElements),
		slog.Int("page", page.Number),
		slog.Int("total_pages", page.TotalPages),
	)

	for _, item := range page.Content {
		if ctx.Err() != nil {
			return result, fmt.Errorf("shanoir: search download canceled: %w", ctx.Err())
		}

		path, err := d.DownloadDataset(ctx, item.DatasetID, format)
		if err != nil {
			LogError(d.logger, "dataset download failed", err,
				slog.String("dataset_id", item.DatasetID.String()),
			)

			result.Failed = append(result.Failed, item.DatasetID)

			continue
		}

		result.Succeeded = append(result.Succeeded, path)
	}

	return result, nil
}
