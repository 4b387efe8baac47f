package shanoir

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_SendsQueryAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shanoir-ng/datasets/solr", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		assert.Equal(t, "id,ASC", r.URL.Query().Get("sort"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"expertMode":true,"searchText":"subjectName:01001"}`, string(body))

		_, _ = w.Write([]byte(`{"content":[{"datasetId":1,"datasetName":"T1"}],"totalElements":1,"totalPages":1,"number":2,"size":10}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokens{access: "A"})

	resp, err := client.Search(context.Background(), SearchQuery{
		Text:       "subjectName:01001",
		ExpertMode: true,
		Page:       2,
		Size:       10,
		Sort:       "id,ASC",
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	page, err := resp.Page()
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, DatasetID("1"), page.Content[0].DatasetID)
	assert.Equal(t, "T1", page.Content[0].DatasetName)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Equal(t, 2, page.Number)
}

func TestSearch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad query"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokens{access: "A"})

	_, err := client.Search(context.Background(), NewSearchQuery("("))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestNewSearchQuery_Defaults(t *testing.T) {
	q := NewSearchQuery("brain")
	assert.Equal(t, SearchQuery{Text: "brain", Page: 0, Size: 50, Sort: "id,DESC"}, q)
}

func searchResponse(t *testing.T, ids ...any) *Response {
	t.Helper()

	content := make([]map[string]any, len(ids))
	for i, id := range ids {
		content[i] = map[string]any{"datasetId": id}
	}

	body, err := json.Marshal(map[string]any{"content": content, "totalElements": len(ids)})
	require.NoError(t, err)

	return &Response{StatusCode: http.StatusOK, Status: "200 OK", Body: body}
}

func TestDownloadSearchResults_FailureDoesNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		switch r.URL.Path {
		case "/shanoir-ng/datasets/datasets/download/2":
			w.WriteHeader(http.StatusInternalServerError)
		case "/shanoir-ng/datasets/datasets/download/3":
			// No Content-Disposition: the item fails after a 200.
			_, _ = w.Write([]byte("?"))
		default:
			serveFile(w, "ds_"+filepath.Base(r.URL.Path)+".nii", []byte(r.URL.Path))
		}
	}))
	defer srv.Close()

	d, dir := newTestDownloader(t, srv.URL, nil)

	result, err := d.DownloadSearchResults(context.Background(), searchResponse(t, 1, 2, 3, 4), FormatNifti)
	require.NoError(t, err)

	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 4, result.Total())
	assert.Equal(t, []DatasetID{"2", "3"}, result.Failed)
	assert.Equal(t, []string{
		filepath.Join(dir, "ds_1.nii"),
		filepath.Join(dir, "ds_4.nii"),
	}, result.Succeeded)

	got, err := os.ReadFile(filepath.Join(dir, "ds_4.nii"))
	require.NoError(t, err)
	assert.Equal(t, "/shanoir-ng/datasets/datasets/download/4", string(got))
}

func TestDownloadSearchResults_OnlyFor200(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, srv.URL, nil)

	resp := searchResponse(t, 1, 2)
	resp.StatusCode = http.StatusNoContent

	result, err := d.DownloadSearchResults(context.Background(), resp, FormatNifti)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total())
	assert.Equal(t, int32(0), calls.Load())
}

func TestDownloadSearchResults_Canceled(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		cancel()
		serveFile(w, "one.nii", []byte("1"))
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, srv.URL, nil)

	_, err := d.DownloadSearchResults(ctx, searchResponse(t, 1, 2, 3), FormatNifti)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownloadSearchResults_BadBody(t *testing.T) {
	d, _ := newTestDownloader(t, "http://127.0.0.1:1", nil)

	resp := &Response{StatusCode: http.StatusOK, Body: []byte("not json")}
	_, err := d.DownloadSearchResults(context.Background(), resp, FormatNifti)
	assert.Error(t, err)
}
