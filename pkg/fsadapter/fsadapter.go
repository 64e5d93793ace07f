// Package fsadapter binds the device registry to a FUSE mount, dispatching
// each filesystem callback to the registry and to the device it resolves
// to. It performs no I/O of its own beyond that delegation.
package fsadapter

import (
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/hashicorp/go-hclog"

	"github.com/rscarvalho/blockv"
)

// Dialer connects to the backing-device server named by target, performing
// the handshake, and is invoked from Symlink.
type Dialer func(target string) (*blockv.NetworkDevice, error)

// FileSystem implements pathfs.FileSystem against a *blockv.Registry. Any
// operation not overridden here (xattrs, hardlinks, chmod, ...) inherits
// the no-op/ENOSYS behavior of pathfs.NewDefaultFileSystem, since this
// domain never needs them.
type FileSystem struct {
	pathfs.FileSystem

	log      hclog.Logger
	registry *blockv.Registry
	dial     Dialer
}

// New returns a FileSystem serving the entries in registry, dialing
// backing-device servers for new symlinks through dial.
func New(log hclog.Logger, registry *blockv.Registry, dial Dialer) *FileSystem {
	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		log:        log.Named("fsadapter"),
		registry:   registry,
		dial:       dial,
	}
}

// fullPath converts a go-fuse pathfs name (relative, no leading slash, ""
// for the root) into a registry path (always "/"-prefixed).
func fullPath(name string) string {
	if name == "" {
		return "/"
	}
	return "/" + name
}

func (fs *FileSystem) String() string { return "blockv" }

func (fs *FileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	p := fullPath(name)
	if p == "/" {
		return &fuse.Attr{Mode: fuse.S_IFDIR | 0755, Nlink: 2}, fuse.OK
	}

	dev, ok := fs.registry.Lookup(p)
	if !ok {
		return nil, fuse.ENOENT
	}

	perm := uint32(0644)
	if dev.ReadOnly() {
		perm = 0444
	}

	mode := uint32(fuse.S_IFREG)
	if nd, isNetwork := dev.(*blockv.NetworkDevice); isNetwork && p != "/"+nd.Target() {
		mode = fuse.S_IFLNK
	}

	return &fuse.Attr{
		Mode:  mode | perm,
		Size:  uint64(dev.Size()),
		Nlink: 1,
	}, fuse.OK
}

func (fs *FileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	if name != "" {
		return nil, fuse.ENOENT
	}

	paths := fs.registry.Enumerate()
	entries := make([]fuse.DirEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, fuse.DirEntry{
			Name: strings.TrimPrefix(p, "/"),
			Mode: fuse.S_IFREG,
		})
	}
	return entries, fuse.OK
}

func (fs *FileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	p := fullPath(name)
	dev, ok := fs.registry.Lookup(p)
	if !ok {
		return nil, fuse.ENOENT
	}

	if dev.ReadOnly() && flags&3 != syscall.O_RDONLY {
		return nil, fuse.Status(syscall.EACCES)
	}

	return &deviceFile{File: nodefs.NewDefaultFile(), dev: dev}, fuse.OK
}

func (fs *FileSystem) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	p := fullPath(name)

	if fs.registry.Exists(p) {
		if flags&syscall.O_EXCL != 0 {
			return nil, fuse.Status(syscall.EEXIST)
		}
	} else if _, err := fs.registry.AddMemory(p); err != nil {
		fs.log.Error("create failed", "path", p, "error", err)
		return nil, fuse.EIO
	}

	dev, _ := fs.registry.Lookup(p)
	return &deviceFile{File: nodefs.NewDefaultFile(), dev: dev}, fuse.OK
}

func (fs *FileSystem) Symlink(target string, linkName string, context *fuse.Context) fuse.Status {
	p := fullPath(linkName)

	if fs.registry.Exists(p) {
		return fuse.Status(syscall.EEXIST)
	}

	nd, err := fs.dial(target)
	if err != nil {
		fs.log.Error("handshake with backing server failed", "target", target, "error", err)
		return fuse.EIO
	}

	if err := fs.registry.AddNetwork(p, nd); err != nil {
		nd.Close()
		fs.log.Error("registering network device failed", "path", p, "error", err)
		return fuse.EIO
	}

	return fuse.OK
}

func (fs *FileSystem) Readlink(name string, context *fuse.Context) (string, fuse.Status) {
	p := fullPath(name)
	dev, ok := fs.registry.Lookup(p)
	if !ok {
		return "", fuse.ENOENT
	}

	nd, ok := dev.(*blockv.NetworkDevice)
	if !ok {
		return "", fuse.Status(syscall.EPERM)
	}
	return nd.Target(), fuse.OK
}

func (fs *FileSystem) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	p := fullPath(name)
	dev, ok := fs.registry.Lookup(p)
	if !ok {
		return fuse.ENOENT
	}

	md, ok := dev.(*blockv.MemoryDevice)
	if !ok {
		return fuse.Status(syscall.EPERM)
	}

	if err := md.Truncate(int64(size)); err != nil {
		return fuse.Status(syscall.EPERM)
	}
	return fuse.OK
}

// deviceFile is the per-open-file handle returned by Open and Create. It
// carries no state of its own beyond the device it forwards to: this
// system does no per-handle buffering or caching.
type deviceFile struct {
	nodefs.File
	dev blockv.Device
}

// clampToRange implements the read/write clamp rule of the adapter
// contract: n bytes at off against a device of size sz become min(n, sz-off)
// when off < sz, and 0 when off >= sz.
func clampToRange(n, off, sz int64) int64 {
	if off >= sz {
		return 0
	}
	if off+n > sz {
		return sz - off
	}
	return n
}

func (f *deviceFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	size := clampToRange(int64(len(dest)), off, f.dev.Size())
	if size == 0 {
		return fuse.ReadResultData(nil), fuse.OK
	}

	n, err := f.dev.ReadAt(dest[:size], off)
	if err != nil || int64(n) != size {
		return nil, fuse.EIO
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (f *deviceFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	if f.dev.ReadOnly() {
		return 0, fuse.Status(syscall.EBADF)
	}

	size := clampToRange(int64(len(data)), off, f.dev.Size())
	if size == 0 {
		return 0, fuse.OK
	}

	n, err := f.dev.WriteAt(data[:size], off)
	if err != nil || int64(n) != size {
		return 0, fuse.EIO
	}
	return uint32(n), fuse.OK
}

func (f *deviceFile) GetAttr(out *fuse.Attr) fuse.Status {
	perm := uint32(0644)
	if f.dev.ReadOnly() {
		perm = 0444
	}
	out.Mode = fuse.S_IFREG | perm
	out.Size = uint64(f.dev.Size())
	return fuse.OK
}
