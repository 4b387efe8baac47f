// Package shanoir is a client for the dataset REST API of a Shanoir server.
// Every request carries a bearer token; a 401 triggers exactly one token
// refresh and one resend before the failure is reported.
package shanoir

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, shanoir.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("shanoir: bad request")
	ErrUnauthorized = errors.New("shanoir: unauthorized")
	ErrForbidden    = errors.New("shanoir: forbidden")
	ErrNotFound     = errors.New("shanoir: not found")
	ErrConflict     = errors.New("shanoir: conflict")
	ErrServerError  = errors.New("shanoir: server error")
	ErrUnexpected   = errors.New("shanoir: unexpected status")
)

// Request and response shape errors.
var (
	ErrUnsupportedMethod = errors.New("shanoir: unsupported method")
	ErrBatchTooLarge     = errors.New("shanoir: too many datasets in one batch")
	ErrNoFilename        = errors.New("shanoir: response has no filename")
)

// maxLoggedBody bounds how much of an error body ends up in the log.
const maxLoggedBody = 2048

// APIError wraps a sentinel error with the status line, headers and body of
// the failed response.
type APIError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	RequestID  string // X-Request-ID sent with the failed request
	Err        error  // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("shanoir: HTTP %d %s", e.StatusCode, reason(e.StatusCode))
	}

	return fmt.Sprintf("shanoir: HTTP %d %s: %s", e.StatusCode, reason(e.StatusCode), truncate(body))
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusOK && code < http.StatusMultipleChoices {
			return nil
		}

		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpected
	}
}

// LogError logs a failed operation. API errors contribute their status,
// reason, body and headers so a failed item can be investigated later.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs,
			slog.Int("status", apiErr.StatusCode),
			slog.String("reason", reason(apiErr.StatusCode)),
			slog.String("body", truncate(string(apiErr.Body))),
			slog.Any("headers", apiErr.Header),
		)

		if apiErr.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", apiErr.RequestID))
		}
	}

	logger.Error(msg, attrs...)
}

func reason(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}

	return "Unknown"
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}

	return s[:maxLoggedBody] + "...(truncated)"
}
