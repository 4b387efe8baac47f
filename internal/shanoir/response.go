package shanoir

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Response is a fully buffered API response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("shanoir: decoding response body: %w", err)
	}

	return nil
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("shanoir: reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
