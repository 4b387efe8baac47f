package shanoir

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stallingServer announces 100 bytes, sends 7 and then goes silent until
// the client hangs up.
func stallingServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename=stall.nii")
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestDownloadDataset_StalledBodyTimesOut(t *testing.T) {
	tests := []struct {
		name     string
		progress ProgressReporter
	}{
		{"buffered", nil},
		{"streamed", &recordingReporter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := stallingServer(t)

			d, dir := newTestDownloader(t, srv.URL, tt.progress)
			d.client.SetReadTimeout(200 * time.Millisecond)

			start := time.Now()
			_, err := d.DownloadDataset(context.Background(), "1", FormatNifti)
			elapsed := time.Since(start)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrReadTimeout)
			assert.Less(t, elapsed, 5*time.Second)
			assert.NoFileExists(t, filepath.Join(dir, "stall.nii"))
			assertNoPartials(t, dir)
		})
	}
}

func TestDownloadDataset_SlowSteadyBodyFinishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename=slow.nii")

		for range 6 {
			_, _ = w.Write([]byte("chunk"))
			w.(http.Flusher).Flush()
			time.Sleep(60 * time.Millisecond)
		}
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, srv.URL, &recordingReporter{})
	d.client.SetReadTimeout(250 * time.Millisecond)

	// Total transfer time exceeds the timeout; only silence counts.
	path, err := d.DownloadDataset(context.Background(), "1", FormatNifti)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestGet_StalledBodyTimesOut(t *testing.T) {
	srv := stallingServer(t)

	client := newTestClient(t, srv.URL, &fakeTokens{access: "A"})
	client.SetReadTimeout(200 * time.Millisecond)

	_, err := client.Get(context.Background(), "/x", nil)
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestWatchBody_CloseCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := watchBody(io.NopCloser(strings.NewReader("abc")), time.Hour, cancel)

	data, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.NoError(t, ctx.Err())

	require.NoError(t, b.Close())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWatchBody_ZeroTimeoutNeverExpires(t *testing.T) {
	b := watchBody(io.NopCloser(strings.NewReader("abc")), 0, func() {})
	assert.Nil(t, b.timer)

	data, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}
