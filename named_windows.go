//go:build windows

package events

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows has first-class named event objects; this backend is a thin
// wrapper. CreateEvent with an existing name attaches to the object and
// the kernel ignores the creation arguments, which is exactly the
// first-creator-wins contract.

var (
	ntdll            = windows.NewLazySystemDLL("ntdll.dll")
	procNtQueryEvent = ntdll.NewProc("NtQueryEvent")
)

// EVENT_BASIC_INFORMATION, information class 0.
type eventBasicInformation struct {
	EventType  int32 // 0 = notification (manual-reset), 1 = synchronization (auto-reset)
	EventState int32
}

type eventHandle struct {
	h windows.Handle
}

func namedEventsSupported() bool { return true }

func openOrCreateEvent(name string, initialState, manualReset bool) (eventHandle, error) {
	n, err := windows.UTF16PtrFromString(`Local\` + name)
	if err != nil {
		return eventHandle{}, err
	}
	var mr, is uint32
	if manualReset {
		mr = 1
	}
	if initialState {
		is = 1
	}
	h, err := windows.CreateEvent(nil, mr, is, n)
	if h == 0 {
		return eventHandle{}, err
	}
	// err == ERROR_ALREADY_EXISTS means we attached to a live object and
	// our arguments were ignored. Not a failure.
	return eventHandle{h: h}, nil
}

func (h eventHandle) set() error {
	return windows.SetEvent(h.h)
}

func (h eventHandle) reset() error {
	return windows.ResetEvent(h.h)
}

func (h eventHandle) pulse() error {
	return windows.PulseEvent(h.h)
}

// isSet queries the event state through NtQueryEvent rather than a
// zero-timeout wait: a zero wait on an auto-reset event would consume the
// signal as a side effect.
func (h eventHandle) isSet() bool {
	var info eventBasicInformation
	var retLen uint32
	status, _, _ := procNtQueryEvent.Call(
		uintptr(h.h),
		0, // EventBasicInformation
		uintptr(unsafe.Pointer(&info)),
		unsafe.Sizeof(info),
		uintptr(unsafe.Pointer(&retLen)),
	)
	if status != 0 { // NTSTATUS failure
		return false
	}
	return info.EventState != 0
}

func (h eventHandle) wait(timeout time.Duration) error {
	var ms uint32
	switch {
	case timeout < 0:
		ms = windows.INFINITE
	case timeout == 0:
		ms = 0
	default:
		// Round up so a sub-millisecond timeout still blocks.
		ms = uint32((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	s, err := windows.WaitForSingleObject(h.h, ms)
	switch s {
	case windows.WAIT_OBJECT_0:
		return nil
	// WAIT_TIMEOUT is a syscall.Errno in x/sys; the others are untyped.
	case uint32(windows.WAIT_TIMEOUT):
		return ErrTimeout
	case windows.WAIT_ABANDONED:
		return ErrAbandoned
	default:
		return err
	}
}

func (h eventHandle) close() error {
	return windows.CloseHandle(h.h)
}

// unlinkEvent is a no-op: the kernel reclaims a named event when the last
// handle across all processes is closed.
func unlinkEvent(name string) error { return nil }
