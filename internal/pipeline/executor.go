// Package pipeline coordinates the request-processing pipeline: it
// executes individual probes with retries and fans units of work out
// over the input stream under concurrency and pacing controls.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"regexp"
	"strings"
	"time"

	"github.com/reqsweep/reqsweep/config"
	"github.com/reqsweep/reqsweep/internal/filter"
	"github.com/reqsweep/reqsweep/internal/httpclient"
	"github.com/reqsweep/reqsweep/internal/output"
	"github.com/reqsweep/reqsweep/internal/request"
	"github.com/reqsweep/reqsweep/internal/title"
)

// attemptState tracks the retry loop of one unit of work.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateRetrying
	stateSuccess
	stateExhausted
)

// Outcome is the result of a completed (non-exhausted) request.
//
// Body is the fetched response body when any consumer asked for it
// (body inclusion, a body filter, or title extraction); Record.Body is
// set only when body inclusion itself was requested.
type Outcome struct {
	Record output.Record
	Body   *string
}

// Executor builds and sends individual HTTP requests for one run.
// It is immutable after construction and safe for concurrent use.
type Executor struct {
	client  *http.Client
	opts    *config.Options
	regex   *regexp.Regexp
	headers http.Header
	logger  *slog.Logger
}

// NewExecutor prepares an [Executor]: the body-filter regex is compiled
// once (an invalid pattern logs a warning and disables regex filtering)
// and the default headers are parsed once.
func NewExecutor(client *http.Client, opts *config.Options, logger *slog.Logger) *Executor {
	return &Executor{
		client:  client,
		opts:    opts,
		regex:   filter.Compile(opts.FilterRegex, logger),
		headers: httpclient.ParseHeaders(opts.Headers, logger),
		logger:  logger,
	}
}

// Regex returns the compiled body-filter regex, nil when absent or
// invalid.
func (e *Executor) Regex() *regexp.Regexp {
	return e.regex
}

// Execute runs the retry loop for one descriptor: up to retry+1
// attempts with a fixed delay between them. Returns nil after the last
// attempt fails; intermediate failures and the final error are reported
// to the diagnostic stream only.
func (e *Executor) Execute(ctx context.Context, d request.Descriptor) *Outcome {
	var (
		out      *Outcome
		lastErr  error
		attempts int
	)

	for state := stateAttempting; ; {
		switch state {
		case stateAttempting, stateRetrying:
			if state == stateRetrying && e.opts.Delay > 0 {
				time.Sleep(time.Duration(e.opts.Delay) * time.Millisecond)
			}

			var err error
			if out, err = e.Attempt(ctx, d); err == nil {
				state = stateSuccess
				continue
			}

			lastErr = err
			attempts++
			if attempts <= e.opts.Retry {
				e.logger.Warn("attempt failed, retrying",
					"url", d.URL,
					"attempt", attempts,
					"error", err,
				)
				state = stateRetrying
			} else {
				state = stateExhausted
			}
		case stateSuccess:
			return out
		case stateExhausted:
			e.logger.Error("request failed",
				"url", d.URL,
				"attempts", e.opts.Retry+1,
				"error", lastErr,
			)
			return nil
		}
	}
}

// Attempt sends the descriptor once with the configured per-request
// timeout and no retries. The tool-invocation path uses this directly.
func (e *Executor) Attempt(ctx context.Context, d request.Descriptor) (*Outcome, error) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(e.opts.Timeout)*time.Second)
	defer cancel()

	// capture the remote address of the connection the request rides on
	var remoteIP string
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn == nil {
				return
			}
			if host, _, err := net.SplitHostPort(info.Conn.RemoteAddr().String()); err == nil {
				remoteIP = host
			}
		},
	}
	reqCtx = httptrace.WithClientTrace(reqCtx, trace)

	var bodyReader io.Reader
	if d.Body != "" {
		bodyReader = strings.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, d.Method, d.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	httpclient.ApplyHeaders(req, e.headers)

	// the preview reads request metadata only; the request being sent
	// is never consumed
	var rawReq *string
	if e.opts.IncludeReq {
		preview := request.RawPreview(req, d.Body, e.opts.HTTP2, nil)
		rawReq = &preview
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	defer resp.Body.Close()

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}

	// fetch the body only when something downstream needs it
	var bodyText *string
	wantBody := e.opts.IncludeRes ||
		e.opts.FilterString != "" ||
		e.opts.FilterRegex != "" ||
		e.opts.IncludeTitle
	if wantBody {
		text := ""
		if data, readErr := io.ReadAll(resp.Body); readErr == nil {
			text = string(data)
		}
		bodyText = &text
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	var titlePtr *string
	if e.opts.IncludeTitle && bodyText != nil {
		if t, ok := title.Extract(*bodyText); ok {
			titlePtr = &t
		}
	}

	rec := output.Record{
		Method:        d.Method,
		URL:           d.URL,
		IP:            remoteIP,
		StatusCode:    resp.StatusCode,
		ContentLength: size,
		Elapsed:       elapsed,
		Title:         titlePtr,
		RawRequest:    rawReq,
	}
	if e.opts.IncludeRes {
		rec.Body = bodyText
	}

	return &Outcome{Record: rec, Body: bodyText}, nil
}
