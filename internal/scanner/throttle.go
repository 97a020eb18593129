package scanner

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	minBackoff      = 500 * time.Millisecond
	maxBackoff      = 30 * time.Second
	errorsToBackOff = 3
)

// Throttler adapts the per-request delay to the target. 429 and 503
// responses, or a run of transport errors, double the delay; the next healthy
// response halves it again, never going below the base delay. A nil or
// disabled Throttler always returns the base delay.
type Throttler struct {
	base    time.Duration
	enabled bool
	logger  *slog.Logger

	mu      sync.Mutex
	delay   time.Duration
	strikes int
}

// NewThrottler creates a throttler. A nil logger discards messages.
func NewThrottler(base time.Duration, enabled bool, logger *slog.Logger) *Throttler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Throttler{base: base, delay: base, enabled: enabled, logger: logger}
}

// Delay returns the wait before the next request.
func (t *Throttler) Delay() time.Duration {
	switch {
	case t == nil:
		return 0
	case !t.enabled:
		return t.base
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

func limited(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// RecordStatus feeds one response status into the throttler.
func (t *Throttler) RecordStatus(status int) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if limited(status) {
		t.strikes++
		if t.slowDown() {
			t.logger.Warn("rate limited, backing off", "status", status, "delay", t.delay)
		}
		return
	}
	if t.strikes == 0 {
		return
	}
	t.strikes = 0
	if d := max(t.delay/2, t.base); d != t.delay {
		t.delay = d
		t.logger.Debug("throttle recovering", "delay", d)
	}
}

// RecordError counts a transport failure. errorsToBackOff in a row slow the
// scan down.
func (t *Throttler) RecordError() {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strikes++
	if t.strikes >= errorsToBackOff && t.slowDown() {
		t.logger.Warn("repeated errors, backing off", "delay", t.delay)
	}
}

// slowDown doubles the delay within [minBackoff, maxBackoff] and reports
// whether it changed. mu must be held.
func (t *Throttler) slowDown() bool {
	d := min(max(t.delay*2, minBackoff), maxBackoff)
	if d == t.delay {
		return false
	}
	t.delay = d
	return true
}
