package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cargo"
)

// Exit codes.
const (
	exitSuccess        = 0
	exitCommandFailed  = 1
	exitInvalidCommand = 2
	exitInvalidOutput  = 3
	exitUsage          = 4
)

// exitCodeFor maps an error onto an exit code by its cargo error kind.
// Errors from outside the cargo package are usage or config errors.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	kind, ok := cargo.KindOf(err)
	if !ok {
		return exitUsage
	}
	switch kind {
	case cargo.InvalidCommand:
		return exitInvalidCommand
	case cargo.InvalidOutput:
		return exitInvalidOutput
	default:
		return exitCommandFailed
	}
}

// usageError wraps err as a cli.ExitCoder with the usage exit code.
func usageError(err error) error {
	return cli.Exit(err.Error(), exitUsage)
}
