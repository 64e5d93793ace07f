package blockv

import (
	"net"

	"github.com/hashicorp/go-hclog"
)

type opts struct {
	log  hclog.Logger
	dial func() (net.Conn, error)
}

// Option configures a NetworkDevice at construction time.
type Option func(o *opts)

// WithLogger sets the logger a network device uses for reconnect and
// framing-anomaly diagnostics. Defaults to hclog.NewNullLogger().
func WithLogger(log hclog.Logger) Option {
	return func(o *opts) {
		o.log = log
	}
}

// WithDialer overrides how a network device opens its TCP connection. This
// exists so the hard-coded default dial address (see DialNetworkDevice) can
// be replaced without touching call sites, leaving room for a future
// change that parses the symlink target into a real host:port.
func WithDialer(dial func() (net.Conn, error)) Option {
	return func(o *opts) {
		o.dial = dial
	}
}
