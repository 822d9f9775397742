// Package output renders completed probe results and serializes writes
// to a single destination.
//
// A [Record] is rendered by a [Formatter] into one of three encodings
// (plain, JSONL, CSV) and appended to a [Sink]. The sink guarantees
// that concurrent producers never interleave mid-record and that the
// CSV header appears exactly once.
package output

import "time"

// Record is the result of one successfully completed request. It is
// transient: produced by the executor, consumed immediately by the
// formatter, never stored.
type Record struct {
	Method        string
	URL           string
	IP            string
	StatusCode    int
	ContentLength int64
	Elapsed       time.Duration

	// Title is the extracted HTML title; nil when extraction was not
	// requested or found nothing.
	Title *string

	// RawRequest is the rendered request preview; nil unless capture
	// was requested.
	RawRequest *string

	// Body is the response body; nil unless body inclusion was
	// requested.
	Body *string
}
