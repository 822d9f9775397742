package output

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Sink serializes writes from many concurrent producers to one
// destination (console or file).
//
// Each Write appends one complete record under the lock, so records
// from different units of work never interleave mid-line. The one-time
// CSV header is guarded by the same lock. Flush must be called exactly
// once, after all producers have finished.
type Sink struct {
	mu            sync.Mutex
	w             *bufio.Writer
	file          *os.File
	console       bool
	headerWritten bool
	logger        *slog.Logger
}

// NewConsoleSink returns a sink writing to stdout.
func NewConsoleSink(logger *slog.Logger) *Sink {
	return &Sink{
		w:       bufio.NewWriter(os.Stdout),
		console: true,
		logger:  logger,
	}
}

// NewFileSink creates (truncating) the output file and returns a sink
// writing to it.
func NewFileSink(path string, logger *slog.Logger) (*Sink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &Sink{
		w:      bufio.NewWriter(file),
		file:   file,
		logger: logger,
	}, nil
}

// NewWriterSink wraps an arbitrary writer. Used by tests and by callers
// that manage the destination themselves.
func NewWriterSink(w io.Writer, logger *slog.Logger) *Sink {
	return &Sink{
		w:      bufio.NewWriter(w),
		logger: logger,
	}
}

// Console reports whether the sink writes to stdout. Colorized plain
// output is only enabled for console sinks.
func (s *Sink) Console() bool {
	return s.console
}

// Write appends one complete record. Write failures are reported to the
// diagnostic stream; they never contaminate the data stream or abort
// other producers.
func (s *Sink) Write(record string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.WriteString(record); err != nil {
		s.logger.Error("error writing to output", "error", err)
	}
}

// WriteHeader appends the header at most once per process, regardless
// of how many producers race to be first.
func (s *Sink) WriteHeader(header string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.headerWritten {
		return
	}
	if _, err := s.w.WriteString(header); err != nil {
		s.logger.Error("error writing to output", "error", err)
	}
	s.headerWritten = true
}

// Flush drains the buffer and closes the file when the sink owns one.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.file != nil {
		if closeErr := s.file.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
