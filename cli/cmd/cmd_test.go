package cmd

import (
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cargo"
)

// newTestCLIContext builds a context where only flagValues count as set.
func newTestCLIContext(t *testing.T, flagValues map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, name := range []string{"target", "package", "log-level"} {
		fs.String(name, "", "")
	}
	fs.Bool("release", false, "")
	fs.Duration("timeout", 0, "")
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	return cli.NewContext(app, fs, nil)
}

func TestResolveString_CLIWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"target": "cli-val"})
	if got := resolveString(c, "target", "config-val"); got != "cli-val" {
		t.Errorf("expected CLI to win, got %q", got)
	}
}

func TestResolveString_ConfigFallback(t *testing.T) {
	c := newTestCLIContext(t, nil)
	if got := resolveString(c, "target", "config-val"); got != "config-val" {
		t.Errorf("expected config fallback, got %q", got)
	}
}

func TestResolveBool_CLIFalseWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"release": "false"})
	if resolveBool(c, "release", true) {
		t.Error("expected explicit --release=false to override config true")
	}
}

func TestResolveDuration(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"timeout": "30s"})
	if got := resolveDuration(c, "timeout", time.Minute); got != 30*time.Second {
		t.Errorf("expected 30s, got %v", got)
	}
	c = newTestCLIContext(t, nil)
	if got := resolveDuration(c, "timeout", time.Minute); got != time.Minute {
		t.Errorf("expected config fallback 1m, got %v", got)
	}
}

func TestParseEnv(t *testing.T) {
	pairs, err := parseEnv([]string{"RUSTFLAGS=-C target-cpu=native", "EMPTY="})
	if err != nil {
		t.Fatalf("parseEnv: %v", err)
	}
	want := [][2]string{{"RUSTFLAGS", "-C target-cpu=native"}, {"EMPTY", ""}}
	if len(pairs) != len(want) || pairs[0] != want[0] || pairs[1] != want[1] {
		t.Errorf("parseEnv = %v, want %v", pairs, want)
	}

	for _, bad := range []string{"NOVALUE", "=value"} {
		if _, err := parseEnv([]string{bad}); err == nil {
			t.Errorf("parseEnv(%q) expected error", bad)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"command failed", &cargo.Error{Kind: cargo.CommandFailed}, exitCommandFailed},
		{"invalid command", &cargo.Error{Kind: cargo.InvalidCommand}, exitInvalidCommand},
		{"invalid output", &cargo.Error{Kind: cargo.InvalidOutput}, exitInvalidOutput},
		{"other", errors.New("bad flag"), exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCargoFlags_IncludeOutputFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range CargoFlags() {
		names[f.Names()[0]] = true
	}
	for _, want := range []string{"format", "no-color", "config", "cargo", "strict", "stats", "timeout"} {
		if !names[want] {
			t.Errorf("CargoFlags missing --%s", want)
		}
	}
}
