package httpclient

import (
	"log/slog"
	"net/http"
	"strings"
)

// ParseHeaders parses "Key: Value" strings into an http.Header.
//
// Malformed entries (no ": " separator, empty key) log a warning and
// are skipped; later entries for the same key replace earlier ones.
func ParseHeaders(headers []string, logger *slog.Logger) http.Header {
	parsed := make(http.Header, len(headers))

	for _, h := range headers {
		key, value, found := strings.Cut(h, ": ")
		if !found || key == "" {
			logger.Warn("invalid header format, expected 'Key: Value'", "header", h)
			continue
		}
		parsed.Set(key, strings.TrimSpace(value))
	}

	return parsed
}

// ApplyHeaders sets each header on the request, replacing any value the
// request already carries for that key.
func ApplyHeaders(req *http.Request, headers http.Header) {
	for key, values := range headers {
		req.Header[key] = values
	}
}
