package events

import (
	"fmt"
	"strings"
	"time"
)

// NamedEvent is a system-wide event identified by a string name. Any
// process on the same machine that constructs a NamedEvent with the same
// name gets an independent handle to the same underlying signaled state;
// a Set through one handle is observed by Wait and IsSet on every other.
//
// The first creator of a name decides the initial state and reset mode for
// the lifetime of the underlying object. Later constructions attach to it
// and their initialState/manualReset arguments are silently ignored.
// Whichever process's create call reaches the OS first wins; this race is
// inherent to the shared-namespace model.
//
// Backends: a kernel event object on Windows, a shared-memory control
// block with futex wakeups on Linux. Other platforms have no named
// backend; see NamedEventsSupported.
type NamedEvent struct {
	name string
	h    eventHandle
}

// NewNamedEvent creates the named event, or attaches to it if the name is
// already in use anywhere on the machine. Platform-level construction
// failures (permissions, resource exhaustion) are returned as wrapped
// system errors.
func NewNamedEvent(name string, initialState, manualReset bool) (*NamedEvent, error) {
	if name == "" {
		return nil, fmt.Errorf("events: empty event name")
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("events: invalid event name %q: path separators not allowed", name)
	}
	if !NamedEventsSupported() {
		return nil, ErrUnsupported
	}
	h, err := openOrCreateEvent(name, initialState, manualReset)
	if err != nil {
		return nil, fmt.Errorf("events: create %q: %w", name, err)
	}
	Debug("named event opened", "name", name)
	return &NamedEvent{name: name, h: h}, nil
}

// Name returns the cross-process lookup key.
func (e *NamedEvent) Name() string { return e.name }

// Set signals the event, releasing one waiter (auto-reset) or all waiters
// until Reset (manual-reset), across every process holding a handle.
func (e *NamedEvent) Set() error { return e.h.set() }

// Reset returns the event to the not-signaled state.
func (e *NamedEvent) Reset() error { return e.h.reset() }

// Pulse releases waiters blocked at this instant, machine-wide, and leaves
// the event not-signaled. For auto-reset events at most one waiter is
// released. Like the Windows primitive it mirrors, Pulse offers no stable
// observation window: a waiter must already be blocked to be released.
func (e *NamedEvent) Pulse() error { return e.h.pulse() }

// IsSet reports the current state without blocking. It performs a true
// non-consuming query: an auto-reset signal is never consumed by IsSet.
func (e *NamedEvent) IsSet() bool { return e.h.isSet() }

// Wait blocks until the event fires or timeout elapses. Forever blocks
// indefinitely, 0 probes without blocking. Returns nil when signaled,
// ErrTimeout on timeout, ErrAbandoned if the platform reports the previous
// owner died holding the object.
func (e *NamedEvent) Wait(timeout time.Duration) error { return e.h.wait(timeout) }

// Close releases this handle. The underlying object lives until every
// handle in every process is gone (Windows) or until Unlink removes the
// name (Linux).
func (e *NamedEvent) Close() error { return e.h.close() }

// Fire is an alias for Set.
func (e *NamedEvent) Fire() error { return e.Set() }

// Stop is an alias for Reset.
func (e *NamedEvent) Stop() error { return e.Reset() }

// Unlink removes the named event from the system namespace so the next
// creation starts fresh. Existing handles keep working. On Windows the
// kernel reclaims named objects by handle refcount and Unlink is a no-op;
// on Linux the backing name persists until unlinked, so tests and
// well-behaved owners should call it.
func Unlink(name string) error {
	return unlinkEvent(name)
}
