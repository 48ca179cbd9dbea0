//go:build !linux && !windows

package shmbuf

import "errors"

var errUnsupported = errors.New("shmbuf: shared memory not supported on this platform")

type bufHandle struct{}

func bufSupported() bool { return false }

func createBuffer(name string, size uint64) (*Buffer, error) {
	return nil, errUnsupported
}

func openBuffer(name string, size uint64) (*Buffer, error) {
	return nil, errUnsupported
}

func (b *Buffer) closeBuffer() error { return errUnsupported }

func unlinkBuffer(name string) error { return errUnsupported }
