//go:build windows

package shmbuf

import (
	"fmt"
	"io/fs"
	"unsafe"

	"golang.org/x/sys/windows"
)

const fileMapAllAccess = 0xF001F

// OpenFileMappingW has no wrapper in x/sys/windows.
var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = kernel32.NewProc("OpenFileMappingW")
)

type bufHandle struct {
	mapping windows.Handle
	view    unsafe.Pointer
}

func bufSupported() bool { return true }

func createBuffer(name string, size uint64) (*Buffer, error) {
	n, err := windows.UTF16PtrFromString(`Local\` + name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		uint32(size>>32),
		uint32(size&0xFFFFFFFF),
		n,
	)
	if h == 0 {
		return nil, fmt.Errorf("shmbuf: create %q: %w", name, err)
	}
	if err == windows.ERROR_ALREADY_EXISTS {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("shmbuf: create %q: %w", name, fs.ErrExist)
	}
	return mapBuffer(name, h, size)
}

func openBuffer(name string, size uint64) (*Buffer, error) {
	n, err := windows.UTF16PtrFromString(`Local\` + name)
	if err != nil {
		return nil, err
	}
	h, _, err := procOpenFileMappingW.Call(
		uintptr(fileMapAllAccess),
		0,
		uintptr(unsafe.Pointer(n)),
	)
	if h == 0 {
		return nil, fmt.Errorf("shmbuf: open %q: %w", name, err)
	}
	return mapBuffer(name, windows.Handle(h), size)
}

func mapBuffer(name string, h windows.Handle, size uint64) (*Buffer, error) {
	addr, err := windows.MapViewOfFile(h, fileMapAllAccess, 0, 0, uintptr(size))
	// The conversion happens right at the call: addr is a fresh kernel
	// mapping, never a Go pointer the GC could have moved.
	view := unsafe.Pointer(addr)
	if addr == 0 {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("shmbuf: map %q: %w", name, err)
	}
	return &Buffer{
		name: name,
		data: unsafe.Slice((*byte)(view), size),
		h:    bufHandle{mapping: h, view: view},
	}, nil
}

func (b *Buffer) closeBuffer() error {
	var first error
	if b.h.view != nil {
		first = windows.UnmapViewOfFile(uintptr(b.h.view))
		b.h.view = nil
		b.data = nil
	}
	if b.h.mapping != 0 {
		if err := windows.CloseHandle(b.h.mapping); err != nil && first == nil {
			first = err
		}
		b.h.mapping = 0
	}
	return first
}

// unlinkBuffer is a no-op: the kernel reclaims a mapping when the last
// handle across all processes is closed.
func unlinkBuffer(name string) error { return nil }
