package main

import (
	"bytes"
	"context"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanoir/shanoir-downloader/internal/config"
)

func TestProxyFunc_HTTPOnly(t *testing.T) {
	p := &config.Proxy{Host: "h", Port: "8080", User: "u", Password: "p"}
	fn := proxyFunc(p)
	require.NotNil(t, fn)

	req := httptest.NewRequest(http.MethodGet, "http://example.org/x", nil)
	got, err := fn(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://u:p@h:8080", got.String())

	req = httptest.NewRequest(http.MethodGet, "https://example.org/x", nil)
	got, err = fn(req)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProxyFunc_None(t *testing.T) {
	assert.Nil(t, proxyFunc(nil))
}

func TestTLSConfigFor(t *testing.T) {
	cfg, err := tlsConfigFor("")
	require.NoError(t, err)
	assert.Nil(t, cfg.RootCAs)
	assert.False(t, cfg.InsecureSkipVerify)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))

	_, err = tlsConfigFor(bad)
	assert.Error(t, err)

	_, err = tlsConfigFor(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestNewHTTPClient_TrustsBundle(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}
	require.NoError(t, os.WriteFile(caFile, pem.EncodeToMemory(block), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := newHTTPClient(config.Settings{Timeout: 5 * time.Second, Certificate: caFile}, logger, false)
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Without the bundle the self-signed server is rejected.
	plain, err := newHTTPClient(config.Settings{Timeout: 5 * time.Second}, logger, false)
	require.NoError(t, err)

	_, err = plain.Get(srv.URL)
	assert.Error(t, err)
}

func TestNewHTTPClient_Timeouts(t *testing.T) {
	client, err := newHTTPClient(config.Settings{Timeout: 7 * time.Second}, slog.Default(), false)
	require.NoError(t, err)

	assert.Zero(t, client.Timeout, "body streaming is not bounded")

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, 7*time.Second, tr.ResponseHeaderTimeout)
}

func TestDebugTransport_LogsWithoutSecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := newHTTPClient(config.Settings{Timeout: 5 * time.Second}, logger, true)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/path?format=nii", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer super-secret")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	out := buf.String()
	assert.Contains(t, out, "http request")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "/path?format=nii")
	assert.NotContains(t, out, "super-secret")
}

func TestRedactURL(t *testing.T) {
	u, err := url.Parse("http://user:pw@host:8080/a?b=c")
	require.NoError(t, err)
	assert.Equal(t, "http://host:8080/a?b=c", redactURL(u))
}
