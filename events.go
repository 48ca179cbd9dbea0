// Package events provides named binary signaling primitives ("events")
// that can be set, reset, pulsed, waited upon and queried for state.
//
// Two variants implement the same contract. InProcessEvent coordinates
// goroutines within a single program. NamedEvent is identified by a string
// name and is visible machine-wide, so independent, unrelated processes can
// coordinate by referring to the same name. The signal itself carries no
// payload; any data exchange (for example a shared-memory buffer) is layered
// on top by the caller.
//
// An event is either manual-reset (stays signaled until explicitly reset,
// releasing every waiter) or auto-reset (releases exactly one waiter per
// signal, then reverts to not-signaled). The mode is fixed at creation. For
// named events, the first process to create a given name decides the initial
// state and reset mode; later creations with the same name attach to the
// existing object and their creation arguments are ignored.
//
// EventHandler composes on top of the contract: it waits on an action event
// and a stop event from a background goroutine, invoking a callback each
// time the action event fires and shutting down when the stop event fires.
package events

import (
	"errors"
	"sync"
	"time"
)

// Forever makes Wait block until the event fires.
const Forever time.Duration = -1

var (
	// ErrTimeout is returned by Wait when the timeout elapses before the
	// event fires. Callers should treat it as "not yet signaled".
	ErrTimeout = errors.New("events: wait timed out")

	// ErrAbandoned is returned by Wait on a named event when the platform
	// reports that the previous owning process terminated without releasing
	// the object. Only the Windows backend can report this.
	ErrAbandoned = errors.New("events: event abandoned by previous owner")

	// ErrUnsupported is returned when constructing a named event on a
	// platform without named-object support.
	ErrUnsupported = errors.New("events: named events not supported on this platform")
)

// Event is the common contract implemented by both variants.
//
// Set, Reset, Pulse and IsSet return immediately. Wait blocks the calling
// goroutine until the event fires or the timeout elapses; pass Forever to
// block indefinitely and 0 for a non-blocking probe. Wait returns nil when
// signaled, ErrTimeout on timeout and ErrAbandoned where the platform
// reports abandonment. IsSet never consumes an auto-reset signal.
type Event interface {
	Name() string
	Set() error
	Reset() error
	Pulse() error
	IsSet() bool
	Wait(timeout time.Duration) error
}

var namedSupported = sync.OnceValue(namedEventsSupported)

// NamedEventsSupported reports whether this platform can back named,
// cross-process events. It is resolved once per process. When it returns
// false, NewNamedEvent fails with ErrUnsupported and New falls back to the
// in-process variant.
func NamedEventsSupported() bool {
	return namedSupported()
}

// New creates an event using the best available backend: a named system
// event where the platform supports one, otherwise an in-process event.
// Callers that require cross-process visibility should use NewNamedEvent
// directly so the fallback cannot mask a configuration problem.
func New(name string, initialState, manualReset bool) (Event, error) {
	if NamedEventsSupported() {
		return NewNamedEvent(name, initialState, manualReset)
	}
	return NewInProcessEvent(name, initialState, manualReset), nil
}
