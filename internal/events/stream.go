package events

import (
	"context"
	"sync"
)

// Sink receives events. Emit reports false once the sink no longer accepts
// events.
type Sink interface {
	Emit(ev Event) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) bool

func (f SinkFunc) Emit(ev Event) bool { return f(ev) }

// Stream is an unbounded FIFO of events with a single close. Producers never
// block; consumers block in Next until an event arrives or the stream closes.
type Stream struct {
	mu      sync.Mutex
	buf     []Event
	closed  bool
	changed chan struct{}
}

// NewStream returns an open stream.
func NewStream() *Stream {
	return &Stream{changed: make(chan struct{})}
}

// Emit appends ev. It is a no-op returning false after Close.
func (s *Stream) Emit(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.buf = append(s.buf, ev)
	s.signal()
	return true
}

// Close appends final and closes the stream. Only the first call has any
// effect; it reports whether this call closed the stream.
func (s *Stream) Close(final ...Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.buf = append(s.buf, final...)
	s.closed = true
	s.signal()
	return true
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Next returns the next event in order. ok is false once the stream is
// closed and drained, or when ctx is done first.
func (s *Stream) Next(ctx context.Context) (ev Event, ok bool) {
	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			ev = s.buf[0]
			s.buf[0] = Event{}
			s.buf = s.buf[1:]
			s.mu.Unlock()
			return ev, true
		}
		if s.closed {
			s.mu.Unlock()
			return Event{}, false
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// signal wakes every waiting consumer. Callers hold mu.
func (s *Stream) signal() {
	close(s.changed)
	s.changed = make(chan struct{})
}
