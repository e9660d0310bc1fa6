// Package main provides the cargoexec CLI entrypoint.
//
// Usage:
//
//	cargoexec <command> [subcommand] [options]
//
// Exit codes:
//   - 0: success
//   - 1: cargo (or the executed binary, or a test) failed
//   - 2: cargo could not be spawned
//   - 3: cargo output could not be decoded
//   - 4: usage or configuration error
//
// `run --exec` exits with the executed binary's own status.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cli/cmd"
	"github.com/pithecene-io/cargoexec/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "cargoexec",
		Usage:          "Drive cargo builds, runs and tests through their JSON output",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.BuildCommand(),
			cmd.RunCommand(),
			cmd.TestCommand(),
			cmd.TargetCommand(),
			cmd.DebugCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler prints err, if it carries a message, and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus returns the exit code for err and the message to print.
// cli.Exit("", N) carries no message worth printing.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
