package shanoir

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// filenamePattern recovers the name from Content-Disposition headers that
// mime.ParseMediaType rejects, such as unquoted names containing spaces.
var filenamePattern = regexp.MustCompile(`filename=(.+)`)

// filenameFromHeader extracts the download file name from the
// Content-Disposition header. The result is a bare base name in NFC form,
// safe to join onto the output folder.
func filenameFromHeader(h http.Header) (string, error) {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return "", fmt.Errorf("%w: missing Content-Disposition header", ErrNoFilename)
	}

	var name string
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		name = params["filename"]
	}

	if name == "" {
		if m := filenamePattern.FindStringSubmatch(cd); m != nil {
			name = m[1]
		}
	}

	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ";")
	name = strings.Trim(name, `"'`)

	// Server-supplied names never get to pick a directory.
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: unusable Content-Disposition %q", ErrNoFilename, cd)
	}

	return norm.NFC.String(name), nil
}
