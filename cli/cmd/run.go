package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/metrics"
)

// RunResponse is the response for the run command.
type RunResponse struct {
	Path  string            `json:"path" yaml:"path"`
	Kind  string            `json:"kind" yaml:"kind"`
	Stats *metrics.Snapshot `json:"stats,omitempty" yaml:"stats,omitempty"`
}

func (r *RunResponse) setStats(s *metrics.Snapshot) { r.Stats = s }

// RunCommand returns the run command.
// It builds the crate and resolves the one binary or example the build
// produced. With --exec it runs that executable with the trailing
// arguments and exits with its status.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Build and resolve (or execute) the crate's binary",
		ArgsUsage: "[-- args...]",
		Flags: append(CargoFlags(),
			&cli.StringFlag{
				Name:  "bin",
				Usage: "Name of the binary to resolve",
			},
			&cli.StringFlag{
				Name:  "example",
				Usage: "Name of the example to resolve",
			},
			&cli.BoolFlag{
				Name:  "exec",
				Usage: "Execute the resolved binary with the trailing arguments",
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) (err error) {
	s, err := newSession(c, "run")
	if err != nil {
		return err
	}
	defer func() { s.close(err) }()

	b := s.build()
	if name := c.String("bin"); name != "" {
		b.Bin(name)
	}
	if name := c.String("example"); name != "" {
		b.Example(name)
	}

	s.collector.IncInvocationStarted()
	run, err := b.Run(s.ctx)
	if err != nil {
		return s.fail(err)
	}
	s.collector.IncInvocationSucceeded()

	if !c.Bool("exec") {
		return s.render(&RunResponse{Path: run.Path(), Kind: run.Kind()})
	}

	cmd := run.Command(s.ctx, c.Args().Slice()...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = c.App.Writer
	cmd.Stderr = s.stderr
	s.logger.Info("executing", map[string]any{"path": run.Path(), "args": c.Args().Slice()})

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				// Killed by a signal.
				code = exitCommandFailed
			}
			return cli.Exit("", code)
		}
		return cli.Exit(fmt.Sprintf("failed to execute %s: %v", run.Path(), err), exitInvalidCommand)
	}
	return nil
}
