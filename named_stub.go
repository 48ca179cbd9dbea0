//go:build !linux && !windows

package events

import "time"

// No named-object backend on this platform; only the in-process variant
// is available. See NamedEventsSupported.

type eventHandle struct{}

func namedEventsSupported() bool { return false }

func openOrCreateEvent(name string, initialState, manualReset bool) (eventHandle, error) {
	return eventHandle{}, ErrUnsupported
}

func (h eventHandle) set() error                       { return ErrUnsupported }
func (h eventHandle) reset() error                     { return ErrUnsupported }
func (h eventHandle) pulse() error                     { return ErrUnsupported }
func (h eventHandle) isSet() bool                      { return false }
func (h eventHandle) wait(timeout time.Duration) error { return ErrUnsupported }
func (h eventHandle) close() error                     { return ErrUnsupported }

func unlinkEvent(name string) error { return ErrUnsupported }
