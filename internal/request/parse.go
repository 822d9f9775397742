// Package request turns raw input lines into request descriptors.
//
// One line of input describes one HTTP request. A line is either a bare
// URL, or "METHOD URL" optionally followed by a body:
//
//	https://example.com
//	POST https://example.com/login user=admin&pass=admin
//
// Parsing is best-effort: a line whose first token is not a recognized
// HTTP verb is treated as a URL in its entirety, with method GET.
package request

import "strings"

// canonical HTTP verbs recognized as the first token of a request line.
var methods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"HEAD":    true,
	"PATCH":   true,
	"OPTIONS": true,
}

// Descriptor is one parsed request line. It is immutable once built;
// Body is empty when the line carried no body.
type Descriptor struct {
	Method string
	URL    string
	Body   string
}

// ParseLine parses one input line into a [Descriptor].
//
// An empty line yields a GET descriptor with an empty URL; callers must
// treat an empty URL as "skip". When the first token case-insensitively
// matches a known verb and a second token exists, the second token is
// the URL and any remaining tokens (rejoined with single spaces) form
// the body. Otherwise the whole line is the URL with method GET.
// ParseLine never fails; malformed lines degrade to best-effort GET.
func ParseLine(line string) Descriptor {
	parts := strings.Fields(line)

	if len(parts) == 0 {
		return Descriptor{Method: "GET"}
	}

	if verb := strings.ToUpper(parts[0]); len(parts) > 1 && methods[verb] {
		return Descriptor{
			Method: verb,
			URL:    parts[1],
			Body:   strings.Join(parts[2:], " "),
		}
	}

	return Descriptor{Method: "GET", URL: line}
}
