// Package cargo runs cargo subcommands and consumes their JSON output.
//
// Start wraps any *exec.Cmd whose stdout is line-delimited JSON and yields
// the lines as they are written. Build and Test assemble the usual
// `cargo build` and `cargo test` invocations; Build.Run resolves the single
// executable a build produced, and Build.RunTests lazily yields its test
// harnesses. Failures are reported as *Error, classified by ErrorKind.
package cargo

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

var bin = sync.OnceValue(func() string {
	if v := os.Getenv("CARGO"); v != "" {
		return v
	}
	return "cargo"
})

// Bin returns the cargo executable: $CARGO if set, otherwise "cargo".
func Bin() string {
	return bin()
}

var currentTarget = sync.OnceValue(detectTarget)

// CurrentTarget returns the target triple builds run for by default.
//
// Resolution order: $CARGO_BUILD_TARGET, the host line of `rustc -vV`
// (using $RUSTC if set), then a triple derived from the Go runtime's
// GOOS and GOARCH. The result is computed once per process.
func CurrentTarget() string {
	return currentTarget()
}

func detectTarget() string {
	if t := os.Getenv("CARGO_BUILD_TARGET"); t != "" {
		return t
	}
	rustc := os.Getenv("RUSTC")
	if rustc == "" {
		rustc = "rustc"
	}
	if out, err := exec.Command(rustc, "-vV").Output(); err == nil {
		if host := parseHost(string(out)); host != "" {
			return host
		}
	}
	return hostTriple(runtime.GOOS, runtime.GOARCH)
}

// parseHost extracts the triple from the "host: <triple>" line of
// `rustc -vV` output.
func parseHost(out string) string {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "host:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func hostTriple(goos, goarch string) string {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "riscv64":
		arch = "riscv64gc"
	case "ppc64le":
		arch = "powerpc64le"
	case "ppc64":
		arch = "powerpc64"
	case "loong64":
		arch = "loongarch64"
	case "arm":
		if goos == "linux" {
			return "armv7-unknown-linux-gnueabihf"
		}
		arch = "armv7"
	}

	switch goos {
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "darwin", "ios":
		return arch + "-apple-" + goos
	case "windows":
		return arch + "-pc-windows-msvc"
	case "android":
		return arch + "-linux-android"
	default:
		return arch + "-unknown-" + goos
	}
}

// procSpec is the process description shared by the builders.
type procSpec struct {
	program string
	args    []string
	dir     string
	env     []envOp
}

type envOp struct {
	key    string
	value  string
	remove bool
}

func (p *procSpec) setEnv(key, value string) {
	p.env = append(p.env, envOp{key: key, value: value})
}

func (p *procSpec) removeEnv(key string) {
	p.env = append(p.env, envOp{key: key, remove: true})
}

func (p *procSpec) clone() procSpec {
	return procSpec{
		program: p.program,
		args:    append([]string(nil), p.args...),
		dir:     p.dir,
		env:     append([]envOp(nil), p.env...),
	}
}

func (p *procSpec) command(ctx context.Context, extra ...string) *exec.Cmd {
	args := append(append([]string(nil), p.args...), extra...)
	cmd := exec.CommandContext(ctx, p.program, args...)
	cmd.Dir = p.dir
	if len(p.env) > 0 {
		cmd.Env = applyEnv(os.Environ(), p.env)
	}
	return cmd
}

// applyEnv applies ops in order on top of base. Later entries win over
// inherited duplicates.
func applyEnv(base []string, ops []envOp) []string {
	env := append([]string(nil), base...)
	for _, op := range ops {
		if op.remove {
			env = removeKey(env, op.key)
			continue
		}
		env = append(env, op.key+"="+op.value)
	}
	return deduplicateEnv(env)
}

func removeKey(env []string, key string) []string {
	out := env[:0]
	for _, entry := range env {
		if k, _, _ := strings.Cut(entry, "="); k != key {
			out = append(out, entry)
		}
	}
	return out
}

// deduplicateEnv keeps the last occurrence of each key, so explicit entries
// take precedence over duplicates inherited from os.Environ().
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}
