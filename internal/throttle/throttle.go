// Package throttle paces request dispatch across concurrent workers.
//
// Two independent mechanisms are provided: a per-request random jitter
// sleep and a process-wide rate-limit gate enforcing a minimum interval
// between request starts. The gate serializes only the pacing decision;
// the request itself is always sent outside the lock.
package throttle

import (
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

const microsecondsPerSecond = 1_000_000

// SleepRandom sleeps a uniformly random duration within the configured
// "min:max" millisecond range. An empty spec is a no-op. Malformed
// specs (wrong shape, non-numeric bounds, max < min) log a warning and
// skip the delay; they never fail the run.
func SleepRandom(spec string, logger *slog.Logger) {
	if spec == "" {
		return
	}

	minMs, maxMs, ok := parseRange(spec, logger)
	if !ok {
		return
	}

	delay := minMs + rand.Int64N(maxMs-minMs+1)
	time.Sleep(time.Duration(delay) * time.Millisecond)
}

func parseRange(spec string, logger *slog.Logger) (minMs, maxMs int64, ok bool) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		logger.Warn("invalid random-delay format, expected MIN:MAX", "value", spec)
		return 0, 0, false
	}

	minMs, errMin := strconv.ParseInt(parts[0], 10, 64)
	maxMs, errMax := strconv.ParseInt(parts[1], 10, 64)
	if errMin != nil || errMax != nil {
		logger.Warn("invalid random-delay format, could not parse min/max", "value", spec)
		return 0, 0, false
	}

	if maxMs < minMs {
		logger.Warn("invalid random-delay range, max must be >= min", "value", spec)
		return 0, 0, false
	}

	return minMs, maxMs, true
}

// Limiter enforces a minimum interval between request starts, shared by
// every worker in the process. The zero of *Limiter (nil) disables
// rate limiting; Wait on a nil Limiter returns immediately.
type Limiter struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

// NewLimiter builds a [Limiter] allowing at most perSecond request
// starts per second. Returns nil when perSecond is zero or negative.
func NewLimiter(perSecond int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &Limiter{
		last:     time.Now(),
		interval: time.Duration(microsecondsPerSecond/int64(perSecond)) * time.Microsecond,
	}
}

// Wait blocks until at least the configured interval has passed since
// the previous request start, then stamps the current time. The
// check-sleep-stamp sequence runs under the lock, so concurrent callers
// are released one interval apart and the stamp never moves backwards.
func (l *Limiter) Wait() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if elapsed := time.Since(l.last); elapsed < l.interval {
		time.Sleep(l.interval - elapsed)
	}
	l.last = time.Now()
}
