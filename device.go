// Package blockv implements the device abstraction shared by the
// filesystem frontend and the backing-device server: a closed set of two
// device variants (in-memory and network-backed), a registry that maps
// filesystem paths to them, and the network client that forwards I/O to a
// backing-device server.
package blockv

// Device is the capability set every registered entry exposes to the
// filesystem adapter, regardless of variant.
type Device interface {
	// ReadOnly reports whether writes to this device are rejected.
	ReadOnly() bool

	// Size returns the device's current size in bytes.
	Size() int64

	// ReadAt reads len(buf) bytes starting at off. The caller is
	// responsible for clamping off+len(buf) to Size() first; ReadAt does
	// not perform end-of-device clamping itself.
	ReadAt(buf []byte, off int64) (int, error)

	// WriteAt writes len(buf) bytes starting at off. As with ReadAt, the
	// caller has already clamped the range to Size().
	WriteAt(buf []byte, off int64) (int, error)
}

// Targeter is implemented by devices that resolve to a remote endpoint
// string, currently only *NetworkDevice.
type Targeter interface {
	Target() string
}

var (
	_ Device = (*MemoryDevice)(nil)
	_ Device = (*NetworkDevice)(nil)

	_ Targeter = (*NetworkDevice)(nil)
)
