package shanoir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	userAgent       = "shanoir-downloader/1.0"
	contentTypeJSON = "application/json"
	requestIDHeader = "X-Request-ID"
)

// TokenSource provides bearer tokens. Refresh is called at most once per
// request, after the server answered 401 to the current token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// RequestOptions describes the optional parts of a request.
type RequestOptions struct {
	Query url.Values
	// Body is sent as-is and replayed verbatim when the request is resent
	// after a token refresh.
	Body []byte
	// ContentType overrides the default application/json.
	ContentType string
	// AllowErrorStatus returns non-2xx responses to the caller instead of
	// converting them into an *APIError.
	AllowErrorStatus bool
}

// Client is an HTTP client for the Shanoir dataset API. It handles request
// construction, authentication, the single refresh-and-resend on 401, and
// error classification. Requests are never retried for any other reason.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	logger      *slog.Logger
	readTimeout time.Duration
}

// NewClient creates a Shanoir API client.
// baseURL is the server root, e.g. "https://shanoir.irisa.fr".
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// SetReadTimeout bounds how long a response body may stay silent. A body
// that delivers nothing for d fails with ErrReadTimeout and its request is
// abandoned. Zero disables the limit.
func (c *Client) SetReadTimeout(d time.Duration) {
	c.readTimeout = d
}

// Do executes an authenticated GET or POST. The path is appended to the
// client's base URL. On success the caller owns the response body.
// The request and its resend after a refresh share one X-Request-ID.
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions) (*http.Response, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	target := c.baseURL + path
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("shanoir: obtaining token: %w", err)
	}

	// The request context lives until the caller closes the body, so the
	// read timeout can abandon a stalled transfer.
	ctx, cancel := context.WithCancel(ctx)

	handedOver := false
	defer func() {
		if !handedOver {
			cancel()
		}
	}()

	reqID := newRequestID()

	resp, err := c.doOnce(ctx, method, target, tok, reqID, opts)
	if err != nil {
		return nil, fmt.Errorf("shanoir: %s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)

		c.logger.Info("access token rejected, refreshing",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
		)

		tok, err = c.tokens.Refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("shanoir: %s %s: %w", method, path, err)
		}

		resp, err = c.doOnce(ctx, method, target, tok, reqID, opts)
		if err != nil {
			return nil, fmt.Errorf("shanoir: %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", reqID),
		)

		resp.Body = watchBody(resp.Body, c.readTimeout, cancel)
		handedOver = true

		return resp, nil
	}

	if opts.AllowErrorStatus {
		resp.Body = watchBody(resp.Body, c.readTimeout, cancel)
		handedOver = true

		return resp, nil
	}

	resp.Body = watchBody(resp.Body, c.readTimeout, cancel)

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       errBody,
		RequestID:  reqID,
		Err:        classifyStatus(resp.StatusCode),
	}
}

// newRequestID returns a time-ordered id so server logs sort with ours.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// doOnce sends a single request with the given token.
func (c *Client) doOnce(ctx context.Context, method, target, tok, reqID string, opts RequestOptions) (*http.Response, error) {
	body := io.Reader(http.NoBody)
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeJSON
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(requestIDHeader, reqID)

	return c.httpClient.Do(req)
}

// Get issues an authenticated GET and buffers the response.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, RequestOptions{Query: query})
	if err != nil {
		return nil, err
	}

	return readResponse(resp)
}

// Post issues an authenticated POST with a JSON body and buffers the
// response. A nil payload sends an empty body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, payload any) (*Response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("shanoir: encoding request body: %w", err)
		}
	}

	resp, err := c.Do(ctx, http.MethodPost, path, RequestOptions{Query: query, Body: body})
	if err != nil {
		return nil, err
	}

	return readResponse(resp)
}

// drain discards what is left of a response so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
