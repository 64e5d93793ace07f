package cli

import (
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/hashicorp/go-hclog"

	"github.com/rscarvalho/blockv"
	"github.com/rscarvalho/blockv/pkg/fsadapter"
)

// MountCommand mounts the filesystem frontend: `blockv mount <mount-point>`.
type MountCommand struct {
	Log hclog.Logger
}

func (c *MountCommand) Synopsis() string {
	return "Mount the blockv virtual device directory"
}

func (c *MountCommand) Help() string {
	return strings.TrimSpace(`
Usage: blockv mount <mount-point>

  Mounts a directory whose entries are in-memory or network-backed block
  devices, created via create/symlink against the mount point.
`)
}

func (c *MountCommand) Run(args []string) int {
	fs := flag.NewFlagSet("mount", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		c.Log.Error("expected exactly one mount-point argument")
		return 1
	}
	mountPoint := fs.Arg(0)

	registry := blockv.NewRegistry()
	defer registry.Close()

	dial := func(target string) (*blockv.NetworkDevice, error) {
		return blockv.DialNetworkDevice(target, blockv.WithLogger(c.Log.Named("network-device")))
	}

	adapter := fsadapter.New(c.Log.Named("fsadapter"), registry, dial)

	pathFs := pathfs.NewPathNodeFs(adapter, nil)
	server, _, err := nodefs.MountRoot(mountPoint, pathFs.Root(), nil)
	if err != nil {
		c.Log.Error("error mounting", "error", err, "mountpoint", mountPoint)
		return 1
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		c.Log.Info("unmounting", "mountpoint", mountPoint)
		server.Unmount()
	}()

	c.Log.Info("mounted", "mountpoint", mountPoint)
	server.Serve()

	return 0
}
