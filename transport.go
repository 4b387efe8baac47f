package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/shanoir/shanoir-downloader/internal/config"
)

// Connection pool settings. Requests are sequential, so a small pool is
// enough.
const (
	maxIdleConns    = 4
	idleConnTimeout = 90 * time.Second
	keepAlive       = 30 * time.Second
)

// newHTTPClient builds the client shared by the token manager and the API
// client. The timeout bounds connecting, the TLS handshake and waiting for
// response headers; body streaming is not bounded so large downloads can
// finish.
func newHTTPClient(s config.Settings, logger *slog.Logger, debug bool) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   s.Timeout,
		KeepAlive: keepAlive,
	}

	tlsConfig, err := tlsConfigFor(s.Certificate)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:                 proxyFunc(s.Proxy),
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   s.Timeout,
		ResponseHeaderTimeout: s.Timeout,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		ForceAttemptHTTP2:     true,
	}

	var rt http.RoundTripper = transport
	if debug {
		rt = &debugTransport{next: transport, logger: logger}
	}

	return &http.Client{Transport: rt}, nil
}

// tlsConfigFor returns a TLS configuration trusting the system roots, or
// only the certificates of the PEM bundle at caFile when it is set.
// Verification is never disabled.
func tlsConfigFor(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if caFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading certificate bundle: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("certificate bundle %s: no PEM certificates found", caFile)
	}

	cfg.RootCAs = pool

	return cfg, nil
}

// proxyFunc routes plain-http requests through p. https requests always go
// direct.
func proxyFunc(p *config.Proxy) func(*http.Request) (*url.URL, error) {
	if p == nil {
		return nil
	}

	proxyURL := p.URL()

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "http" {
			return proxyURL, nil
		}

		return nil, nil //nolint:nilnil // nil URL means no proxy
	}
}

// debugTransport logs one line per HTTP exchange. Headers are not logged:
// they carry bearer tokens.
type debugTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func (d *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	d.logger.Debug("http request",
		slog.String("method", req.Method),
		slog.String("url", redactURL(req.URL)),
		slog.Int64("content_length", req.ContentLength),
	)

	resp, err := d.next.RoundTrip(req)
	if err != nil {
		d.logger.Debug("http request failed",
			slog.String("method", req.Method),
			slog.String("url", redactURL(req.URL)),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	d.logger.Debug("http response",
		slog.String("method", req.Method),
		slog.String("url", redactURL(req.URL)),
		slog.Int("status", resp.StatusCode),
		slog.Int64("content_length", resp.ContentLength),
		slog.Duration("elapsed", time.Since(start)),
	)

	return resp, nil
}

// redactURL drops user info so proxy or basic-auth passwords never reach
// the log.
func redactURL(u *url.URL) string {
	c := *u
	c.User = nil

	return c.String()
}
