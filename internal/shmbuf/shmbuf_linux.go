//go:build linux

package shmbuf

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Regions live as files on the /dev/shm tmpfs, which is what shm_open
// does under the hood, minus the cgo.
const shmDir = "/dev/shm"

type bufHandle struct {
	fd int
}

func bufSupported() bool {
	fi, err := os.Stat(shmDir)
	return err == nil && fi.IsDir()
}

func shmPath(name string) string {
	return filepath.Join(shmDir, name)
}

func createBuffer(name string, size uint64) (*Buffer, error) {
	fd, err := unix.Open(shmPath(name), unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shmbuf: create %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		unix.Unlink(shmPath(name))
		return nil, fmt.Errorf("shmbuf: truncate %q: %w", name, err)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		unix.Unlink(shmPath(name))
		return nil, fmt.Errorf("shmbuf: mmap %q: %w", name, err)
	}
	return &Buffer{name: name, data: data, h: bufHandle{fd: fd}}, nil
}

func openBuffer(name string, size uint64) (*Buffer, error) {
	fd, err := unix.Open(shmPath(name), unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("shmbuf: open %q: %w", name, err)
	}
	// Size guard: mapping past EOF faults with SIGBUS, and a short file
	// usually means the creator has not truncated yet.
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmbuf: stat %q: %w", name, err)
	}
	if uint64(st.Size) < size {
		unix.Close(fd)
		return nil, fmt.Errorf("shmbuf: %q is %d bytes, want %d (creator still initializing?)", name, st.Size, size)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmbuf: mmap %q: %w", name, err)
	}
	return &Buffer{name: name, data: data, h: bufHandle{fd: fd}}, nil
}

func (b *Buffer) closeBuffer() error {
	var first error
	if b.data != nil {
		first = unix.Munmap(b.data)
		b.data = nil
	}
	if b.h.fd >= 0 {
		if err := unix.Close(b.h.fd); err != nil && first == nil {
			first = err
		}
		b.h.fd = -1
	}
	return first
}

func unlinkBuffer(name string) error {
	err := unix.Unlink(shmPath(name))
	if err == unix.ENOENT {
		return nil
	}
	return err
}
