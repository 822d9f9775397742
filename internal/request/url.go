package request

import "strings"

// NormalizeScheme prefixes a URL with http:// or https:// when the
// scheme is missing.
//
// The choice is a heuristic based on a trailing port: when the text
// after the last ':' is entirely numeric it is taken as a port, and
// port 80 selects http while every other port selects https. URLs
// without a port (or with a non-numeric suffix) default to https.
//
// A colon-bearing path segment that happens to end in digits is
// misread as a port; that behavior is intentional and pinned by tests.
func NormalizeScheme(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}

	if i := strings.LastIndex(trimmed, ":"); i >= 0 {
		if port := trimmed[i+1:]; isNumeric(port) {
			if port == "80" {
				return "http://" + trimmed
			}
			// 443 and every other port go over TLS.
			return "https://" + trimmed
		}
	}

	return "https://" + trimmed
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
