package cli

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rscarvalho/blockv/backend"
)

// ServerCommand runs the backing-device server against a local file or
// block device: `blockv server <device-file> [--read-only] [--addr] [--metrics]`.
type ServerCommand struct {
	Log hclog.Logger
}

func (c *ServerCommand) Synopsis() string {
	return "Serve a backing device over the blockv wire protocol"
}

func (c *ServerCommand) Help() string {
	return strings.TrimSpace(`
Usage: blockv server <device-file> [options]

  Opens device-file (a regular file or block device) and serves it to
  network block device clients.

Options:

  --read-only          Reject writes; still drains their payload.
  --addr=host:port      Address to listen on (default 127.0.0.1:22000).
  --metrics=host:port   Address to expose a Prometheus /metrics endpoint on.
`)
}

func (c *ServerCommand) Run(args []string) int {
	var readOnly bool
	var addr, metricsAddr string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.BoolVar(&readOnly, "read-only", false, "reject writes against the device")
	fs.StringVar(&addr, "addr", "127.0.0.1:22000", "address to listen on")
	fs.StringVar(&metricsAddr, "metrics", "", "address to expose Prometheus metrics on")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		c.Log.Error("expected exactly one device-file argument")
		return 1
	}
	path := fs.Arg(0)

	dev, err := backend.Open(path, readOnly)
	if err != nil {
		c.Log.Error("error opening backing device", "error", err, "path", path)
		return 1
	}
	defer dev.Close()

	c.Log.Info("opened backing device", "path", path, "size", dev.Size(), "read-only", dev.ReadOnly())

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				c.Log.Error("metrics server exited", "error", err)
			}
		}()
		c.Log.Info("serving metrics", "addr", metricsAddr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		c.Log.Error("error listening", "error", err, "addr", addr)
		return 1
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		c.Log.Info("shutting down")
		ln.Close()
	}()

	c.Log.Info("listening for connections", "addr", addr)

	if err := backend.Serve(c.Log, ln, dev); err != nil {
		c.Log.Error("listener exited", "error", err)
		return 1
	}

	return 0
}
