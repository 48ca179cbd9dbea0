package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultStopEventName is the reserved name of the process-wide default
// stop event.
const DefaultStopEventName = "__stop_event_handler"

var (
	stopMu      sync.Mutex
	defaultStop Event
)

// DefaultStopEvent returns the process-wide default stop event, creating
// it on first use. It is an in-process manual-reset event under the
// reserved name DefaultStopEventName, shared by every EventHandler not
// given an explicit stop event. Stopping handlers is a process-local
// concern, so the default is deliberately not a named system event.
func DefaultStopEvent() Event {
	stopMu.Lock()
	defer stopMu.Unlock()
	if defaultStop == nil {
		defaultStop = NewInProcessEvent(DefaultStopEventName, false, true)
	}
	return defaultStop
}

// SetDefaultStopEvent replaces the process-wide default stop event.
// Handlers already constructed keep the event they were built with. Meant
// for tests and for programs that want the default to be a named event.
func SetDefaultStopEvent(e Event) {
	stopMu.Lock()
	defaultStop = e
	stopMu.Unlock()
}

// StopAllHandlers pulses the default stop event, stopping every handler
// currently waiting on it. Handlers created afterwards are unaffected,
// which is why this pulses rather than sets.
func StopAllHandlers() error {
	return DefaultStopEvent().Pulse()
}

const (
	actionIndex = 0
	stopIndex   = 1
)

type handlerEntry struct {
	event    Event
	callback func()
}

// EventHandler waits on an action event and a stop event from a dedicated
// background goroutine, invoking a callback each time the action event
// fires and shutting down when the stop event fires. Construction starts
// the background work immediately; there is no separate Start.
//
// Go has no portable wait-any over events, so the handler runs one
// persistent watcher goroutine per event, racing to hand the dispatch loop
// an index; the loop invokes the winning callback synchronously on its own
// goroutine. When both events are signaled, whichever watcher wins the
// race is dispatched first; no ordering beyond that is imposed.
//
// After shutdown a watcher may still be parked in Wait on the action
// event; it exits, without dispatching, the next time that event fires.
type EventHandler struct {
	entries   [2]handlerEntry
	stopEvent Event

	fired    chan int
	finished atomic.Bool
	done     chan struct{}
}

// NewEventHandler creates the handler and immediately starts dispatching.
// A nil stopEvent selects DefaultStopEvent. The callback table is written
// here and only read afterwards.
func NewEventHandler(action func(), actionEvent Event, stopEvent Event) *EventHandler {
	if stopEvent == nil {
		stopEvent = DefaultStopEvent()
	}
	h := &EventHandler{
		stopEvent: stopEvent,
		fired:     make(chan int),
		done:      make(chan struct{}),
	}
	h.entries[actionIndex] = handlerEntry{event: actionEvent, callback: action}
	h.entries[stopIndex] = handlerEntry{event: stopEvent, callback: h.finish}
	go h.watch(actionIndex)
	go h.watch(stopIndex)
	go h.run()
	return h
}

// Stop fires the stop event. Provided so callers need not hold a
// reference to it. The handler has fully terminated once Done is closed.
func (h *EventHandler) Stop() error {
	return h.stopEvent.Set()
}

// Done is closed when the dispatch loop has exited.
func (h *EventHandler) Done() <-chan struct{} {
	return h.done
}

// Join blocks until the handler has terminated or timeout elapses.
// Forever blocks indefinitely.
func (h *EventHandler) Join(timeout time.Duration) error {
	switch {
	case timeout == 0:
		select {
		case <-h.done:
			return nil
		default:
			return ErrTimeout
		}
	case timeout < 0:
		<-h.done
		return nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.done:
		return nil
	case <-t.C:
		return ErrTimeout
	}
}

// finish is the stop event's callback. CAS keeps a stop delivered through
// both the event and a broken-wait fallback from running the stop path
// twice.
func (h *EventHandler) finish() {
	h.finished.CompareAndSwap(false, true)
}

func (h *EventHandler) watch(idx int) {
	ev := h.entries[idx].event
	for {
		if err := ev.Wait(Forever); err != nil {
			Debug("handler wait failed", "event", ev.Name(), "err", err)
			if idx != stopIndex {
				return
			}
			// A stop event we can no longer wait on (e.g. abandoned by its
			// owner) is treated as a stop, otherwise the handler could
			// never be shut down.
		}
		if h.finished.Load() {
			return
		}
		select {
		case h.fired <- idx:
		case <-h.done:
			return
		}
		if idx == stopIndex {
			return
		}
	}
}

func (h *EventHandler) run() {
	defer close(h.done)
	for !h.finished.Load() {
		idx := <-h.fired
		h.entries[idx].callback()
	}
}
