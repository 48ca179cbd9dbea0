package events

import (
	"sync"
	"time"
)

// InProcessEvent coordinates goroutines within one program. It has no
// cross-process visibility; the name is advisory and is not a lookup key.
//
// The manual-reset variant keeps a gate channel that is closed while the
// event is signaled, so every waiter (current and future) falls through
// until Reset replaces the gate. The auto-reset variant keeps a single
// sticky token, so exactly one waiter is released per Set.
type InProcessEvent struct {
	name        string
	manualReset bool

	mu    sync.Mutex
	state bool          // manual-reset: signaled flag, gate is closed iff true
	gate  chan struct{} // manual-reset: closed while signaled

	tok     chan struct{} // auto-reset: capacity 1, holds the pending signal
	handoff chan struct{} // auto-reset: unbuffered, used only by Pulse
}

// NewInProcessEvent creates an in-process event with the given initial
// state and reset mode.
func NewInProcessEvent(name string, initialState, manualReset bool) *InProcessEvent {
	e := &InProcessEvent{name: name, manualReset: manualReset}
	if manualReset {
		e.gate = make(chan struct{})
		if initialState {
			e.state = true
			close(e.gate)
		}
	} else {
		e.tok = make(chan struct{}, 1)
		e.handoff = make(chan struct{})
		if initialState {
			e.tok <- struct{}{}
		}
	}
	return e
}

// Name returns the advisory name given at creation.
func (e *InProcessEvent) Name() string { return e.name }

// Set signals the event. Manual-reset: releases all current and future
// waiters until Reset. Auto-reset: releases exactly one waiter; further
// Set calls before that signal is consumed are coalesced.
func (e *InProcessEvent) Set() error {
	if e.manualReset {
		e.mu.Lock()
		if !e.state {
			e.state = true
			close(e.gate)
		}
		e.mu.Unlock()
		return nil
	}
	select {
	case e.tok <- struct{}{}:
	default:
	}
	return nil
}

// Reset returns the event to the not-signaled state. No-op if already
// not-signaled.
func (e *InProcessEvent) Reset() error {
	if e.manualReset {
		e.mu.Lock()
		if e.state {
			e.state = false
			e.gate = make(chan struct{})
		}
		e.mu.Unlock()
		return nil
	}
	select {
	case <-e.tok:
	default:
	}
	return nil
}

// Pulse releases waiters blocked at this instant and leaves the event
// not-signaled. Manual-reset: releases all of them. Auto-reset: releases
// at most one, and only if one is currently blocked. Waiters arriving
// after Pulse returns see a not-signaled event.
func (e *InProcessEvent) Pulse() error {
	if e.manualReset {
		e.mu.Lock()
		if e.state {
			// Already signaled: nobody is blocked, just un-signal.
			e.state = false
			e.gate = make(chan struct{})
			e.mu.Unlock()
			return nil
		}
		old := e.gate
		e.gate = make(chan struct{})
		e.mu.Unlock()
		close(old)
		return nil
	}
	// Drop a pending signal first so the event is left not-signaled. A
	// pending token and a parked waiter cannot coexist, so this never
	// steals a release from the handoff below.
	select {
	case <-e.tok:
	default:
	}
	// A send on an unbuffered channel only succeeds if a waiter is
	// currently parked in Wait, which is exactly the pulse contract.
	select {
	case e.handoff <- struct{}{}:
	default:
	}
	return nil
}

// IsSet reports the current state without blocking and without consuming
// an auto-reset signal. It never fails.
func (e *InProcessEvent) IsSet() bool {
	if e.manualReset {
		e.mu.Lock()
		s := e.state
		e.mu.Unlock()
		return s
	}
	return len(e.tok) > 0
}

// Wait blocks until the event fires or timeout elapses. Forever blocks
// indefinitely, 0 probes without blocking. A successful Wait on an
// auto-reset event consumes the signal.
func (e *InProcessEvent) Wait(timeout time.Duration) error {
	if e.manualReset {
		e.mu.Lock()
		g := e.gate
		e.mu.Unlock()
		switch {
		case timeout == 0:
			select {
			case <-g:
				return nil
			default:
				return ErrTimeout
			}
		case timeout < 0:
			<-g
			return nil
		}
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-g:
			return nil
		case <-t.C:
			return ErrTimeout
		}
	}

	switch {
	case timeout == 0:
		select {
		case <-e.tok:
			return nil
		default:
			return ErrTimeout
		}
	case timeout < 0:
		select {
		case <-e.tok:
			return nil
		case <-e.handoff:
			return nil
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-e.tok:
		return nil
	case <-e.handoff:
		return nil
	case <-t.C:
		return ErrTimeout
	}
}

// Fire is an alias for Set.
func (e *InProcessEvent) Fire() error { return e.Set() }

// Stop is an alias for Reset.
func (e *InProcessEvent) Stop() error { return e.Reset() }
