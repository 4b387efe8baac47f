package shanoir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxBatchSize is the largest number of datasets the server accepts in one
// massive download.
const MaxBatchSize = 50

// Format is the file format requested for a download.
type Format string

// Supported formats.
const (
	FormatNifti Format = "nifti"
	FormatDicom Format = "dicom"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatNifti, FormatDicom:
		return f, nil
	default:
		return "", fmt.Errorf("shanoir: unknown format %q (want nifti or dicom)", s)
	}
}

// QueryValue returns the value of the format query parameter: "nii" for
// NIfTI, "dcm" for everything else.
func (f Format) QueryValue() string {
	if f == FormatNifti {
		return "nii"
	}

	return "dcm"
}

// DatasetID identifies a dataset. The API emits ids as JSON numbers; they
// are kept as strings because they are only ever echoed back in URLs.
type DatasetID string

// UnmarshalJSON accepts both numbers and strings.
func (id *DatasetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("shanoir: decoding dataset id: %w", err)
		}

		*id = DatasetID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("shanoir: decoding dataset id %s: %w", data, err)
	}

	*id = DatasetID(n.String())

	return nil
}

func (id DatasetID) String() string {
	return string(id)
}

// joinIDs renders ids as the comma-separated list the batch endpoint takes.
func joinIDs(ids []DatasetID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}

	return strings.Join(parts, ",")
}

// Search defaults.
const (
	DefaultPage     = 0
	DefaultPageSize = 50
	DefaultSort     = "id,DESC"
)

// SearchQuery is a Solr search request.
type SearchQuery struct {
	Text       string
	ExpertMode bool
	Page       int
	Size       int
	Sort       string
}

// NewSearchQuery returns a query for text with the default paging.
func NewSearchQuery(text string) SearchQuery {
	return SearchQuery{
		Text: text,
		Page: DefaultPage,
		Size: DefaultPageSize,
		Sort: DefaultSort,
	}
}

// SearchResult is one hit of a Solr search.
type SearchResult struct {
	DatasetID   DatasetID `json:"datasetId"`
	DatasetName string    `json:"datasetName"`
	SubjectName string    `json:"subjectName"`
	StudyName   string    `json:"studyName"`
}

// SearchPage is one page of Solr search results.
type SearchPage struct {
	Content       []SearchResult `json:"content"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
	Number        int            `json:"number"`
	Size          int            `json:"size"`
}
