// Package live – SSE sink.
//
// EventSink buffers events between the dispatcher goroutine and the HTTP
// handler goroutine that owns the response stream. Send is non-blocking: a
// device that stops draining its buffer loses events rather than stalling
// dispatch to everyone else, which matches the at-most-once delivery
// contract.
package live

import (
	"errors"
	"sync"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// ErrSinkClosed is returned by Send after the sink has been closed.
var ErrSinkClosed = errors.New("live: sink closed")

// ErrSlowConsumer is returned by Send when the sink buffer is full.
var ErrSlowConsumer = errors.New("live: sink buffer full, event dropped")

// EventSink is the channel-backed Sink used by the SSE stream endpoint. The
// handler drains Events() and writes frames; the dispatcher calls Send.
type EventSink struct {
	ch        chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventSink returns a sink buffering up to buffer events. A buffer of at
// least a few events absorbs bursts while the handler flushes frames.
func NewEventSink(buffer int) *EventSink {
	if buffer < 1 {
		buffer = 1
	}
	return &EventSink{
		ch:   make(chan domain.Event, buffer),
		done: make(chan struct{}),
	}
}

// Send enqueues ev for the handler goroutine. It never blocks: a closed sink
// returns ErrSinkClosed, a full buffer drops the event and returns
// ErrSlowConsumer.
func (s *EventSink) Send(ev domain.Event) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	select {
	case s.ch <- ev:
		return nil
	case <-s.done:
		return ErrSinkClosed
	default:
		return ErrSlowConsumer
	}
}

// Close releases the sink. Safe to call multiple times; Register calls it
// when superseding, and the handler calls it on transport close.
func (s *EventSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Events returns the channel the handler drains to write frames.
func (s *EventSink) Events() <-chan domain.Event { return s.ch }

// Done is closed when the sink is closed (superseded or torn down).
func (s *EventSink) Done() <-chan struct{} { return s.done }
