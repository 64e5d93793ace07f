// Package cli wires blockv's two subcommands, server and mount, into a
// mitchellh/cli.CLI, the same command framework the teacher repo uses for
// its own multi-verb binary.
package cli

import (
	"github.com/hashicorp/go-hclog"
	mcli "github.com/mitchellh/cli"
)

// CLI is the top-level command dispatcher for the blockv binary.
type CLI struct {
	log hclog.Logger
	lc  *mcli.CLI
}

// NewCLI builds a CLI ready to Run against args (typically os.Args[1:]).
func NewCLI(log hclog.Logger, args []string) (*CLI, error) {
	c := &CLI{
		log: log,
		lc:  mcli.NewCLI("blockv", "0.1.0"),
	}
	c.lc.Args = args
	c.lc.Commands = map[string]mcli.CommandFactory{
		"server": func() (mcli.Command, error) {
			return &ServerCommand{Log: log}, nil
		},
		"mount": func() (mcli.Command, error) {
			return &MountCommand{Log: log}, nil
		},
	}
	return c, nil
}

// Run executes the subcommand named by the CLI's args and returns its exit code.
func (c *CLI) Run() (int, error) {
	return c.lc.Run()
}
