// Package syncevent provides a level-triggered event, the Go equivalent of
// asyncio.Event as used throughout the reconcilers: Set/Clear/Wait, with
// IsSet for non-blocking polling at safe abort boundaries.
package syncevent

import (
	"context"
	"sync"
)

// Event is a level-triggered flag with a channel-based Wait.
type Event struct {
	mu   sync.Mutex
	set  bool
	ch   chan struct{}
}

// New returns a cleared event.
func New() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set marks the event as set, waking any current and future Wait calls
// until the next Clear.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Clear resets the event.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

// IsSet reports whether the event is currently set, without blocking.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
