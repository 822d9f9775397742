package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/reqsweep/reqsweep/config"
	"github.com/reqsweep/reqsweep/internal/filter"
	"github.com/reqsweep/reqsweep/internal/output"
	"github.com/reqsweep/reqsweep/internal/request"
	"github.com/reqsweep/reqsweep/internal/throttle"
)

// scanner limits for request lines; bodies ride on the same line
const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 1 << 20
)

// Runner reads request lines and fans them out as concurrent units of
// work over the shared executor, filter, formatter, and sink.
type Runner struct {
	exec      *Executor
	opts      *config.Options
	limiter   *throttle.Limiter
	sink      *output.Sink
	formatter *output.Formatter
	logger    *slog.Logger
}

// NewRunner wires a [Runner] from the shared client and sink. Colorized
// plain output is enabled only when the sink is the console and color
// was not disabled.
func NewRunner(opts *config.Options, client *http.Client, sink *output.Sink, logger *slog.Logger) (*Runner, error) {
	format, err := output.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	return &Runner{
		exec:      NewExecutor(client, opts, logger),
		opts:      opts,
		limiter:   throttle.NewLimiter(opts.RateLimit),
		sink:      sink,
		formatter: &output.Formatter{
			Format:       format,
			Template:     opts.Strf,
			Color:        sink.Console() && !opts.NoColor,
			IncludeTitle: opts.IncludeTitle,
		},
		logger: logger,
	}, nil
}

// Run processes input line-by-line until EOF, spawning one unit of work
// per non-blank line. At most Concurrency units execute simultaneously
// when the bound is set. Run waits for every spawned unit, then flushes
// the sink exactly once.
func (r *Runner) Run(ctx context.Context, in io.Reader) error {
	var (
		wg  sync.WaitGroup
		sem chan struct{}
	)
	if r.opts.Concurrency > 0 {
		sem = make(chan struct{}, r.opts.Concurrency)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			r.process(ctx, line)
		}()
	}
	if err := scanner.Err(); err != nil {
		// unreadable remainder of the input is dropped; completed
		// units still run to completion
		r.logger.Warn("stopped reading input", "error", err)
	}

	wg.Wait()
	return r.sink.Flush()
}

// process runs one unit of work end-to-end. A panic inside a unit is
// recovered and logged with a correlation ID; it never aborts siblings.
func (r *Runner) process(ctx context.Context, line string) {
	defer func() {
		if rec := recover(); rec != nil {
			correlationID := uuid.NewString()
			r.logger.Error("unit of work panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", rec),
				"stack", string(debug.Stack()),
			)
		}
	}()

	d := request.ParseLine(line)
	if d.URL == "" {
		return
	}
	d.URL = request.NormalizeScheme(d.URL)

	throttle.SleepRandom(r.opts.RandomDelay, r.logger)
	r.limiter.Wait()

	out := r.exec.Execute(ctx, d)
	if out == nil {
		return
	}

	if filter.ShouldReject(out.Record.StatusCode, out.Body,
		r.opts.FilterStatus, r.opts.FilterString, r.exec.Regex()) {
		return
	}

	if r.formatter.Format == output.FormatCSV {
		r.sink.WriteHeader(r.formatter.CSVHeader())
	}
	r.sink.Write(r.formatter.Render(out.Record))
}
