// Package backend implements the backing-device server: an open file or
// block device guarded by a shared/exclusive lock, and the per-connection
// handler that services the wire protocol against it.
package backend

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// BackingDevice is the local file or block device a backing-device server
// reads and writes on behalf of clients.
type BackingDevice struct {
	f        *os.File
	size     int64
	readOnly bool

	// mu is the shared/exclusive lock of §4.6: reads take it shared so
	// concurrent pread calls can proceed, writes take it exclusive.
	mu sync.RWMutex
}

// Open stats path, rejects anything but a regular file or a block device,
// determines its size (via stat for a regular file, via an OS-specific
// ioctl for a block device), and opens it with synchronous-write semantics
// so acknowledged writes are durable on return.
func Open(path string, readOnly bool) (*BackingDevice, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %q", path)
	}

	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR | os.O_SYNC
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}

	var size int64
	switch {
	case fi.Mode().IsRegular():
		size = fi.Size()
	case fi.Mode()&os.ModeDevice != 0 && fi.Mode()&os.ModeCharDevice == 0:
		size, err = blockDeviceSize(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "querying size of block device %q", path)
		}
	default:
		f.Close()
		return nil, errors.Errorf("%q is neither a regular file nor a block device", path)
	}

	return &BackingDevice{f: f, size: size, readOnly: readOnly}, nil
}

func (b *BackingDevice) Size() int64    { return b.size }
func (b *BackingDevice) ReadOnly() bool { return b.readOnly }

// ReadAt takes the lock shared, so it can run concurrently with other reads.
func (b *BackingDevice) ReadAt(buf []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.f.ReadAt(buf, off)
}

// WriteAt takes the lock exclusive, serializing against reads and other
// writes.
func (b *BackingDevice) WriteAt(buf []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.WriteAt(buf, off)
}

func (b *BackingDevice) Close() error {
	return b.f.Close()
}
