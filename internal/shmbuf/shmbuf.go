// Package shmbuf maps named shared-memory buffers so unrelated processes
// on one machine can share a byte region by name. It backs the Linux named
// event control block and the example producer/consumer payload channel.
//
// The package only manages the mapping; layout and synchronization of the
// contents are the caller's problem.
package shmbuf

// Buffer is one process's mapping of a named shared-memory region.
// Multiple Buffers with the same name, in the same process or not, view
// the same bytes.
type Buffer struct {
	name string
	data []byte
	h    bufHandle
}

// Supported reports whether this platform has a shared-memory backend.
func Supported() bool {
	return bufSupported()
}

// Create creates the named region with the given size and maps it. Fails
// with an error matching fs.ErrExist if the name is already in use; attach
// to an existing region with Open.
func Create(name string, size uint64) (*Buffer, error) {
	return createBuffer(name, size)
}

// Open maps an existing named region. It fails if the region does not
// exist or is smaller than the requested size (the creator may still be
// initializing it).
func Open(name string, size uint64) (*Buffer, error) {
	return openBuffer(name, size)
}

// Bytes returns the mapped region. The slice is valid until Close.
func (b *Buffer) Bytes() []byte { return b.data }

// Name returns the region's system-wide name.
func (b *Buffer) Name() string { return b.name }

// Close unmaps the region and releases the handle. The region itself
// lives until every process's handle is gone (Windows) or until Unlink
// (Linux).
func (b *Buffer) Close() error {
	return b.closeBuffer()
}

// Unlink removes the name from the system namespace. Existing mappings
// keep working. No-op on Windows, where regions are reclaimed by handle
// refcount.
func Unlink(name string) error {
	return unlinkBuffer(name)
}
