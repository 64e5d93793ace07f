package backend

import (
	"net"

	"github.com/hashicorp/go-hclog"
)

// Serve accepts connections on ln and services each one in its own
// goroutine against dev, until ln is closed. HandleConn needs no changes to
// support this: each connection gets its own handshake and its own request
// loop, and BackingDevice's lock serializes access across them.
func Serve(log hclog.Logger, ln net.Listener, dev *BackingDevice) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		go func() {
			defer conn.Close()
			connLog := log.Named("conn").With("remote", conn.RemoteAddr())
			if err := HandleConn(connLog, conn, dev); err != nil {
				connLog.Error("connection handler exited", "error", err)
			}
		}()
	}
}
