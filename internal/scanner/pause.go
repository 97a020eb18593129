package scanner

import (
	"context"
	"sync"
	"time"
)

// Pauser holds workers between requests while paused. The zero value is
// ready to use and running.
type Pauser struct {
	mu      sync.Mutex
	resumed chan struct{} // non-nil while paused, closed on resume
	since   time.Time
	paused  time.Duration
}

// NewPauser returns a running Pauser.
func NewPauser() *Pauser { return &Pauser{} }

// Pause closes the gate. It reports false if already paused.
func (p *Pauser) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resumed != nil {
		return false
	}
	p.resumed = make(chan struct{})
	p.since = time.Now()
	return true
}

// Resume reopens the gate and releases every waiting worker. It reports false
// if not paused.
func (p *Pauser) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resumed == nil {
		return false
	}
	p.paused += time.Since(p.since)
	close(p.resumed)
	p.resumed = nil
	return true
}

// Toggle pauses a running gate or resumes a paused one, and reports whether
// it is paused afterwards.
func (p *Pauser) Toggle() bool {
	if p.Resume() {
		return false
	}
	return p.Pause()
}

// Wait returns immediately when running. Otherwise it blocks until Resume or
// until ctx is done, returning ctx.Err() in the latter case. A nil Pauser
// never blocks.
func (p *Pauser) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	ch := p.resumed
	p.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPaused reports whether the gate is closed.
func (p *Pauser) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumed != nil
}

// PausedDuration is the total time spent paused, including a pause still in
// progress.
func (p *Pauser) PausedDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resumed != nil {
		return p.paused + time.Since(p.since)
	}
	return p.paused
}
