// Package cli implements the webtrack command line, a thin client over the
// daemon's control socket.
package cli

import (
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/nv4818/webtrack/internal/config"
	"github.com/nv4818/webtrack/internal/statusclient"
)

// deps carries the injectable pieces subcommands need; tests swap them out.
type deps struct {
	out       io.Writer
	newClient func(globals *GlobalFlags) (*statusclient.Client, error)
}

func defaultDeps() *deps {
	return &deps{
		out:       os.Stdout,
		newClient: dialDaemon,
	}
}

func dialDaemon(globals *GlobalFlags) (*statusclient.Client, error) {
	socket := globals.Socket
	if socket == "" {
		cfg, err := config.Load(globals.Config)
		if err != nil {
			return nil, err
		}
		socket = cfg.SocketPath
	}
	return statusclient.New(socket), nil
}

type commands struct {
	Status         *StatusCommand
	TestConnection *TestConnectionCommand
	Enable         *EnableCommand
	Disable        *DisableCommand
}

func buildParser(version string, d *deps) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "webtrack"
	parser.LongDescription = "Control and inspect the webtrack browser time tracking agent."

	cmds := &commands{
		Status:         &StatusCommand{globals: &globals, version: version, deps: d},
		TestConnection: &TestConnectionCommand{globals: &globals, deps: d},
		Enable:         &EnableCommand{globals: &globals, deps: d},
		Disable:        &DisableCommand{globals: &globals, deps: d},
	}

	parser.AddCommand("status", "Show agent status", "Show connection, pairing, and tracking state.", cmds.Status)
	parser.AddCommand("test-connection", "Probe the desktop app", "Check whether the desktop app is reachable on its local port.", cmds.TestConnection)
	parser.AddCommand("enable", "Enable tracking", "Enable tracking and connect to the desktop app.", cmds.Enable)
	parser.AddCommand("disable", "Disable tracking", "Disable tracking and disconnect from the desktop app.", cmds.Disable)

	return parser, &globals, cmds
}

// Run is the main entry point for the webtrack CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil, nil)
}

// RunWithArgs parses args (or os.Args if nil) and executes the matched
// subcommand. A non-nil deps overrides the real daemon client and stdout.
func RunWithArgs(version string, args []string, d *deps) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("webtrack %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	if d == nil {
		d = defaultDeps()
	}
	parser, _, _ := buildParser(version, d)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}
