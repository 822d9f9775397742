package request

import (
	"net/http"
	"sort"
	"strings"
)

const (
	httpVersion2  = "HTTP/2.0"
	httpVersion11 = "HTTP/1.1"
)

// RawPreview renders a human-readable approximation of the outgoing
// request: request line, Host, merged headers, and the body when
// non-empty. It reads only the request's metadata and the descriptor's
// body string, so the request being sent is never consumed or mutated.
//
// extra holds headers injected at the client level (defaults plus any
// per-call custom headers); they override headers already present on
// the request. Header order is sorted for stable output.
func RawPreview(req *http.Request, body string, http2 bool, extra http.Header) string {
	pathAndQuery := req.URL.Path
	if pathAndQuery == "" {
		pathAndQuery = "/"
	}
	if q := req.URL.RawQuery; q != "" {
		pathAndQuery += "?" + q
	}

	version := httpVersion11
	if http2 {
		version = httpVersion2
	}

	var b strings.Builder
	b.WriteString(req.Method + " " + pathAndQuery + " " + version + "\n")
	b.WriteString("Host: " + req.URL.Hostname() + "\n")

	merged := make(http.Header, len(req.Header)+len(extra))
	for k, vs := range req.Header {
		merged[k] = vs
	}
	for k, vs := range extra {
		merged[http.CanonicalHeaderKey(k)] = vs
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range merged[k] {
			b.WriteString(k + ": " + v + "\n")
		}
	}

	if body != "" {
		b.WriteString("\n" + body)
	}

	return b.String()
}
