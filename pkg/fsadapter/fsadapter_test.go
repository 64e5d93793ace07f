package fsadapter

import (
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rscarvalho/blockv"
	"github.com/rscarvalho/blockv/pkg/wire"
)

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func dialerFor(t *testing.T, info wire.ServerInfo) Dialer {
	t.Helper()
	return func(target string) (*blockv.NetworkDevice, error) {
		client, server := net.Pipe()
		go func() {
			server.Write(wire.EncodeServerInfo(info))
		}()
		return blockv.DialNetworkDevice(target, blockv.WithDialer(func() (net.Conn, error) {
			return client, nil
		}))
	}
}

func TestGetAttrRoot(t *testing.T) {
	fs := New(testLogger(), blockv.NewRegistry(), nil)

	attr, status := fs.GetAttr("", nil)
	require.Equal(t, fuse.OK, status)
	assert.Equal(t, uint32(fuse.S_IFDIR|0755), attr.Mode)
}

func TestGetAttrNotFound(t *testing.T) {
	fs := New(testLogger(), blockv.NewRegistry(), nil)

	_, status := fs.GetAttr("missing", nil)
	assert.Equal(t, fuse.ENOENT, status)
}

func TestCreateTruncateWriteReadMemoryDevice(t *testing.T) {
	reg := blockv.NewRegistry()
	fs := New(testLogger(), reg, nil)

	f, status := fs.Create("m", 0, 0644, nil)
	require.Equal(t, fuse.OK, status)
	require.NotNil(t, f)

	require.Equal(t, fuse.OK, fs.Truncate("m", 16, nil))

	want := []byte("HELLOWORLD______")
	n, status := f.Write(want, 0)
	require.Equal(t, fuse.OK, status)
	assert.EqualValues(t, len(want), n)

	got := make([]byte, 16)
	res, status := f.Read(got, 0)
	require.Equal(t, fuse.OK, status)
	buf, status := res.Bytes(got)
	require.Equal(t, fuse.OK, status)
	assert.Equal(t, want, buf)

	attr, status := fs.GetAttr("m", nil)
	require.Equal(t, fuse.OK, status)
	assert.EqualValues(t, 16, attr.Size)
	assert.Equal(t, uint32(fuse.S_IFREG|0644), attr.Mode)
}

func TestCreateExclusiveClash(t *testing.T) {
	reg := blockv.NewRegistry()
	fs := New(testLogger(), reg, nil)

	_, status := fs.Create("m", 0, 0644, nil)
	require.Equal(t, fuse.OK, status)

	_, status = fs.Create("m", syscall.O_EXCL, 0644, nil)
	assert.Equal(t, fuse.Status(syscall.EEXIST), status)
}

func TestSymlinkReadNetworkDevice(t *testing.T) {
	reg := blockv.NewRegistry()
	payload := []byte("hello sir!")

	dial := func(target string) (*blockv.NetworkDevice, error) {
		client, server := net.Pipe()
		go func() {
			server.Write(wire.EncodeServerInfo(wire.ServerInfo{DeviceSize: uint32(len(payload)), ReadOnly: true}))
			reqBuf := make([]byte, wire.ReadRequestSize)
			io.ReadFull(server, reqBuf)
			server.Write(wire.EncodeReadResponseHeader(uint32(len(payload))))
			server.Write(payload)
		}()
		return blockv.DialNetworkDevice(target, blockv.WithDialer(func() (net.Conn, error) {
			return client, nil
		}))
	}

	fs := New(testLogger(), reg, dial)

	status := fs.Symlink("target", "n", nil)
	require.Equal(t, fuse.OK, status)

	attr, status := fs.GetAttr("n", nil)
	require.Equal(t, fuse.OK, status)
	assert.EqualValues(t, len(payload), attr.Size)
	assert.Equal(t, uint32(fuse.S_IFLNK|0444), attr.Mode)

	link, status := fs.Readlink("n", nil)
	require.Equal(t, fuse.OK, status)
	assert.Equal(t, "target", link)

	f, status := fs.Open("n", uint32(syscall.O_RDONLY), nil)
	require.Equal(t, fuse.OK, status)

	got := make([]byte, len(payload))
	res, status := f.Read(got, 0)
	require.Equal(t, fuse.OK, status)
	buf, status := res.Bytes(got)
	require.Equal(t, fuse.OK, status)
	assert.Equal(t, payload, buf)
}

func TestOpenReadOnlyDeviceForWriteDenied(t *testing.T) {
	reg := blockv.NewRegistry()
	dial := dialerFor(t, wire.ServerInfo{DeviceSize: 10, ReadOnly: true})
	fs := New(testLogger(), reg, dial)

	require.Equal(t, fuse.OK, fs.Symlink("target", "n", nil))

	_, status := fs.Open("n", uint32(syscall.O_RDWR), nil)
	assert.Equal(t, fuse.Status(syscall.EACCES), status)
}

func TestWriteToReadOnlyHandleRejected(t *testing.T) {
	reg := blockv.NewRegistry()
	dial := dialerFor(t, wire.ServerInfo{DeviceSize: 10, ReadOnly: true})
	fs := New(testLogger(), reg, dial)

	require.Equal(t, fuse.OK, fs.Symlink("target", "n", nil))

	f, status := fs.Open("n", uint32(syscall.O_RDONLY), nil)
	require.Equal(t, fuse.OK, status)

	_, status = f.Write([]byte("x"), 0)
	assert.Equal(t, fuse.Status(syscall.EBADF), status)
}

func TestReadEOFClamping(t *testing.T) {
	reg := blockv.NewRegistry()
	fs := New(testLogger(), reg, nil)

	f, status := fs.Create("m", 0, 0644, nil)
	require.Equal(t, fuse.OK, status)
	require.Equal(t, fuse.OK, fs.Truncate("m", 8, nil))

	buf := make([]byte, 8)
	res, status := f.Read(buf, 8)
	require.Equal(t, fuse.OK, status)
	got, status := res.Bytes(buf)
	require.Equal(t, fuse.OK, status)
	assert.Empty(t, got)
}
