//go:build linux

package events

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/AlexionSoftware/events/internal/shmbuf"
)

// Linux has no kernel event object, so a named event is a small
// shared-memory control block plus futex wakeups. All cooperating
// processes map the same block under /dev/shm and operate on it with
// atomics; sleeping waiters park on the wake word with FUTEX_WAIT
// (process-shared, hence no FUTEX_PRIVATE_FLAG) and signalers bump it
// and FUTEX_WAKE.

// eventControl is the shared block layout. The creator publishes magic
// last, so attachers that can read magic see fully initialized fields.
type eventControl struct {
	magic   uint32
	version uint32
	flags   uint32
	state   uint32 // 0 = not-signaled, 1 = signaled
	wake    uint32 // futex word, bumped on every Set and Pulse
	pulses  uint32 // manual-reset pulse generation
	tokens  uint32 // auto-reset pulse tokens, one per released waiter
	waiters uint32
}

const (
	ctrlMagic   = 0x45564E54 // "EVNT"
	ctrlVersion = 1

	// One page. Mapping less than a page of a shorter file risks SIGBUS
	// past EOF, and a page is the allocation granularity anyway.
	ctrlSize = 4096

	flagManualReset = 1 << 0

	// Namespace prefix under /dev/shm, keeping event control blocks apart
	// from payload buffers that share the name.
	eventShmPrefix = "evt."
)

type eventHandle struct {
	ctrl *eventControl
	buf  *shmbuf.Buffer
	spin *waitStrategy
}

func namedEventsSupported() bool {
	fi, err := os.Stat("/dev/shm")
	return err == nil && fi.IsDir()
}

func openOrCreateEvent(name string, initialState, manualReset bool) (eventHandle, error) {
	shmName := eventShmPrefix + name

	buf, err := shmbuf.Create(shmName, ctrlSize)
	if err == nil {
		c := (*eventControl)(unsafe.Pointer(&buf.Bytes()[0]))
		var flags uint32
		if manualReset {
			flags |= flagManualReset
		}
		atomic.StoreUint32(&c.flags, flags)
		if initialState {
			atomic.StoreUint32(&c.state, 1)
		}
		atomic.StoreUint32(&c.version, ctrlVersion)
		// Publish last. Attachers wait for this.
		atomic.StoreUint32(&c.magic, ctrlMagic)
		return eventHandle{ctrl: c, buf: buf, spin: newWaitStrategy()}, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return eventHandle{}, err
	}

	// The name is live: attach and ignore our creation arguments. The
	// creator may still be between open and truncate, so retry briefly.
	deadline := time.Now().Add(time.Second)
	for {
		buf, err = shmbuf.Open(shmName, ctrlSize)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return eventHandle{}, err
		}
		time.Sleep(time.Millisecond)
	}
	c := (*eventControl)(unsafe.Pointer(&buf.Bytes()[0]))
	for atomic.LoadUint32(&c.magic) != ctrlMagic {
		if time.Now().After(deadline) {
			buf.Close()
			return eventHandle{}, fmt.Errorf("control block not initialized by creator")
		}
		time.Sleep(time.Millisecond)
	}
	if v := atomic.LoadUint32(&c.version); v != ctrlVersion {
		buf.Close()
		return eventHandle{}, fmt.Errorf("control block version %d, want %d", v, ctrlVersion)
	}
	return eventHandle{ctrl: c, buf: buf, spin: newWaitStrategy()}, nil
}

func (h eventHandle) manualReset() bool {
	return atomic.LoadUint32(&h.ctrl.flags)&flagManualReset != 0
}

func (h eventHandle) set() error {
	c := h.ctrl
	atomic.StoreUint32(&c.state, 1)
	atomic.AddUint32(&c.wake, 1)
	if h.manualReset() {
		futexWake(&c.wake, math.MaxInt32)
	} else {
		futexWake(&c.wake, 1)
	}
	return nil
}

func (h eventHandle) reset() error {
	atomic.StoreUint32(&h.ctrl.state, 0)
	return nil
}

func (h eventHandle) pulse() error {
	c := h.ctrl
	if h.manualReset() {
		// A pending signal is dropped first: waiters blocked right now are
		// released through the pulse generation, and the event is left
		// not-signaled either way.
		atomic.StoreUint32(&c.state, 0)
		atomic.AddUint32(&c.pulses, 1)
		atomic.AddUint32(&c.wake, 1)
		futexWake(&c.wake, math.MaxInt32)
		return nil
	}
	// Auto-reset: drop any pending signal, then hand a token to at most
	// one waiter, and only if one is registered right now. A waiter that
	// times out in the same instant can strand the token; the same race
	// exists in the kernel primitive this mirrors.
	atomic.CompareAndSwapUint32(&c.state, 1, 0)
	if atomic.LoadUint32(&c.waiters) > 0 {
		atomic.AddUint32(&c.tokens, 1)
		atomic.AddUint32(&c.wake, 1)
		futexWake(&c.wake, 1)
	}
	return nil
}

func (h eventHandle) isSet() bool {
	return atomic.LoadUint32(&h.ctrl.state) == 1
}

func (h eventHandle) wait(timeout time.Duration) error {
	c := h.ctrl
	manual := h.manualReset()
	p0 := atomic.LoadUint32(&c.pulses)

	consume := func() bool {
		if manual {
			if atomic.LoadUint32(&c.state) == 1 {
				return true
			}
			return atomic.LoadUint32(&c.pulses) != p0
		}
		if atomic.CompareAndSwapUint32(&c.state, 1, 0) {
			return true
		}
		return consumeToken(&c.tokens)
	}

	if consume() {
		return nil
	}
	if timeout == 0 {
		return ErrTimeout
	}

	atomic.AddUint32(&c.waiters, 1)
	defer atomic.AddUint32(&c.waiters, ^uint32(0))

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if consume() {
			return nil
		}
		var ts *unix.Timespec
		if timeout > 0 {
			rem := time.Until(deadline)
			if rem <= 0 {
				return ErrTimeout
			}
			t := unix.NsecToTimespec(rem.Nanoseconds())
			ts = &t
		}
		// The wake word is sampled before parking; if a signaler bumps it
		// in between, FUTEX_WAIT fails with EAGAIN and the loop re-checks,
		// so the wakeup cannot be lost.
		w0 := atomic.LoadUint32(&c.wake)
		if h.spin.wait(consume, func() { futexWait(&c.wake, w0, ts) }) {
			return nil
		}
	}
}

func (h eventHandle) close() error {
	return h.buf.Close()
}

func unlinkEvent(name string) error {
	return shmbuf.Unlink(eventShmPrefix + name)
}

// consumeToken decrements *addr if it is non-zero.
func consumeToken(addr *uint32) bool {
	for {
		v := atomic.LoadUint32(addr)
		if v == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(addr, v, v-1) {
			return true
		}
	}
}

// Futex op codes. x/sys/unix exports SYS_FUTEX but not the ops; values
// per <linux/futex.h>. No FUTEX_PRIVATE_FLAG: the word is shared across
// processes.
const (
	futexOpWait = 0
	futexOpWake = 1
)

func futexWait(addr *uint32, val uint32, ts *unix.Timespec) error {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexOpWait,
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func futexWake(addr *uint32, n uint32) {
	unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexOpWake,
		uintptr(n),
		0, 0, 0)
}
