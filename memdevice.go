package blockv

import (
	"sync"

	"github.com/pkg/errors"
)

// MemoryDevice is a device whose storage is an in-process heap buffer. It
// is always writable, and its size is fixed the first time it is set by
// Truncate; subsequent calls are refused.
type MemoryDevice struct {
	mu      sync.RWMutex
	content []byte
}

// NewMemoryDevice returns an unsized memory device, as created lazily by
// the filesystem adapter's create operation.
func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{}
}

func (m *MemoryDevice) ReadOnly() bool { return false }

func (m *MemoryDevice) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.content))
}

// Truncate sizes the device exactly once. Calling it again, on a device
// that already has a non-zero size, is a permission error: memory devices
// do not support dynamic resize.
func (m *MemoryDevice) Truncate(n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.content) > 0 {
		return errors.Wrap(ErrPermissionDenied, "memory device already sized")
	}
	if n < 0 {
		return errors.Wrapf(ErrPermissionDenied, "negative size %d", n)
	}

	m.content = make([]byte, n)
	return nil
}

func (m *MemoryDevice) ReadAt(buf []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if off < 0 || off+int64(len(buf)) > int64(len(m.content)) {
		return 0, errors.Wrap(ErrIO, "read out of range")
	}
	return copy(buf, m.content[off:off+int64(len(buf))]), nil
}

func (m *MemoryDevice) WriteAt(buf []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if off < 0 || off+int64(len(buf)) > int64(len(m.content)) {
		return 0, errors.Wrap(ErrIO, "write out of range")
	}
	return copy(m.content[off:off+int64(len(buf))], buf), nil
}
