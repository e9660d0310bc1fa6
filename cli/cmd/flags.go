// Package cmd provides CLI commands for the cargoexec binary.
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)

// OutputFlags returns the flags shared by every command that renders a result.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// CargoFlags returns the flags shared by commands that invoke cargo.
// Each has a cargoexec.yaml counterpart; a flag given on the command line
// wins over the config file.
func CargoFlags() []cli.Flag {
	return append(append(OutputFlags(),
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to cargoexec.yaml (default: ./cargoexec.yaml if present)",
		},
		&cli.StringFlag{
			Name:  "cargo",
			Usage: "Cargo executable (default: $CARGO or cargo)",
		},
		&cli.StringFlag{
			Name:  "manifest-path",
			Usage: "Path to Cargo.toml",
		},
		&cli.StringFlag{
			Name:  "target-dir",
			Usage: "Directory for all generated artifacts",
		},
		&cli.StringFlag{
			Name:  "target",
			Usage: "Build for the target triple",
		},
		&cli.BoolFlag{
			Name:  "current-target",
			Usage: "Build for the detected host triple",
		},
		&cli.StringFlag{
			Name:    "package",
			Aliases: []string{"p"},
			Usage:   "Package to build",
		},
		&cli.BoolFlag{
			Name:  "release",
			Usage: "Build artifacts in release mode",
		},
		&cli.StringSliceFlag{
			Name:    "features",
			Aliases: []string{"F"},
			Usage:   "Features to activate (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "all-features",
			Usage: "Activate all available features",
		},
		&cli.BoolFlag{
			Name:  "no-default-features",
			Usage: "Do not activate the default feature",
		},
		&cli.StringSliceFlag{
			Name:  "env",
			Usage: "Environment variable for cargo as KEY=VALUE (repeatable)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load environment variables for cargo from a dotenv file",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Reject output the message schema does not describe",
		},
		&cli.BoolFlag{
			Name:  "print",
			Usage: "Print cargo messages to stderr as they arrive",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error (default: info)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Kill cargo after this long (e.g. 10m); 0 disables",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "Include invocation statistics in the output",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write invocation counters to this file in Prometheus text format",
		},
	), AdapterFlags()...)
}

// resolveString returns the CLI value if the flag was set, else the config value.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return cfgVal
}

// resolveBool returns the CLI value if the flag was set, else the config value.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal
}

// resolveStrings returns the CLI values if the flag was set, else the config values.
func resolveStrings(c *cli.Context, name string, cfgVal []string) []string {
	if c.IsSet(name) {
		return c.StringSlice(name)
	}
	return cfgVal
}

// resolveDuration returns the CLI value if the flag was set, else the config value.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	return cfgVal
}

// parseEnv splits --env KEY=VALUE entries.
func parseEnv(entries []string) ([][2]string, error) {
	return parsePairs("--env", entries)
}

// parsePairs splits KEY=VALUE entries given to flag.
func parsePairs(flag string, entries []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s %q: expected KEY=VALUE", flag, entry)
		}
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, nil
}
