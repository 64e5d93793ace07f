//go:build linux

package backend

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockDeviceSize queries a block device's size via the BLKGETSIZE64 ioctl,
// the platform equivalent of the size query §4.6 asks for.
func blockDeviceSize(f *os.File) (int64, error) {
	var sz uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sz)))
	if errno != 0 {
		return 0, errno
	}
	return int64(sz), nil
}
