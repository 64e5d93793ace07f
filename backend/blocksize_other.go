//go:build !linux

package backend

import (
	"os"

	"github.com/pkg/errors"
)

// blockDeviceSize has no portable implementation outside Linux; only
// regular files are supported on other platforms.
func blockDeviceSize(f *os.File) (int64, error) {
	return 0, errors.New("backend: block device size query is only supported on linux")
}
