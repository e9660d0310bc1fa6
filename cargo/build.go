package cargo

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pithecene-io/cargoexec/log"
)

// Build is a `cargo build` invocation.
//
// Selection methods record what the build is for, so Run knows which
// artifact kind to look for: Bins and Bin select binaries, Examples and
// Example select examples. Selecting both makes Run fail.
type Build struct {
	spec     procSpec
	bin      bool
	example  bool
	strict   bool
	observer Observer
	logger   *log.Logger
}

// NewBuild is shorthand for New().Build().
func NewBuild() *Build {
	return New().Build()
}

// Package selects the package to build.
func (b *Build) Package(name string) *Build {
	return b.Args("--package", name)
}

// Bins builds all binaries.
func (b *Build) Bins() *Build {
	b.bin = true
	return b.Arg("--bins")
}

// Bin builds the named binary.
func (b *Build) Bin(name string) *Build {
	b.bin = true
	return b.Args("--bin", name)
}

// Examples builds all examples.
func (b *Build) Examples() *Build {
	b.example = true
	return b.Arg("--examples")
}

// Example builds the named example.
func (b *Build) Example(name string) *Build {
	b.example = true
	return b.Args("--example", name)
}

// Tests builds all test targets.
func (b *Build) Tests() *Build {
	return b.Arg("--tests")
}

// Test builds the named integration test.
func (b *Build) Test(name string) *Build {
	return b.Args("--test", name)
}

// ManifestPath sets the Cargo.toml to build.
func (b *Build) ManifestPath(path string) *Build {
	return b.Args("--manifest-path", path)
}

// Release builds with the release profile.
func (b *Build) Release() *Build {
	return b.Arg("--release")
}

// Target builds for the given triple.
func (b *Build) Target(triple string) *Build {
	return b.Args("--target", triple)
}

// CurrentTarget builds for CurrentTarget().
func (b *Build) CurrentTarget() *Build {
	return b.Target(CurrentTarget())
}

// TargetDir sets the directory for build output.
func (b *Build) TargetDir(dir string) *Build {
	return b.Args("--target-dir", dir)
}

// AllFeatures activates all features.
func (b *Build) AllFeatures() *Build {
	return b.Arg("--all-features")
}

// NoDefaultFeatures deactivates the default feature.
func (b *Build) NoDefaultFeatures() *Build {
	return b.Arg("--no-default-features")
}

// Features activates the given features.
func (b *Build) Features(features ...string) *Build {
	if len(features) == 0 {
		return b
	}
	return b.Args("--features", strings.Join(features, " "))
}

// Arg appends a raw argument.
func (b *Build) Arg(arg string) *Build {
	b.spec.args = append(b.spec.args, arg)
	return b
}

// Args appends raw arguments.
func (b *Build) Args(args ...string) *Build {
	b.spec.args = append(b.spec.args, args...)
	return b
}

// Env sets an environment variable for the build.
func (b *Build) Env(key, value string) *Build {
	b.spec.setEnv(key, value)
	return b
}

// EnvRemove removes an inherited environment variable.
func (b *Build) EnvRemove(key string) *Build {
	b.spec.removeEnv(key)
	return b
}

// Dir sets the working directory.
func (b *Build) Dir(dir string) *Build {
	b.spec.dir = dir
	return b
}

// Strict makes Run and RunTests reject output the message schema does not
// describe: unknown fields, reasons and diagnostic levels.
func (b *Build) Strict(strict bool) *Build {
	b.strict = strict
	return b
}

// Observer receives every message Run or RunTests decodes, after it has
// been logged.
func (b *Build) Observer(o Observer) *Build {
	b.observer = o
	return b
}

// Logger sets the logger. Nil selects a no-op logger.
func (b *Build) Logger(l *log.Logger) *Build {
	if l == nil {
		l = log.Nop()
	}
	b.logger = l
	return b
}

// Cmd returns the process the build would run. ctx kills it on cancellation.
func (b *Build) Cmd(ctx context.Context) *exec.Cmd {
	return b.spec.command(ctx)
}

// Exec starts the build and returns its raw output.
func (b *Build) Exec(ctx context.Context) (*Messages, error) {
	return start(b.Cmd(ctx), b.logger)
}

// Run builds and returns the single binary or example the build produced.
func (b *Build) Run(ctx context.Context) (*Run, error) {
	msgs, err := b.Exec(ctx)
	if err != nil {
		return nil, err
	}
	run, err := resolveRun(msgs, b.bin, b.example, b.decoder())
	if err != nil {
		return nil, err
	}
	b.logger.Debug("resolved executable", map[string]any{"path": run.Path(), "kind": run.Kind()})
	return run, nil
}

// RunTests builds and lazily yields the test binaries the build produces.
// The returned value must be drained or closed.
func (b *Build) RunTests(ctx context.Context) (*TestBinaries, error) {
	msgs, err := b.Exec(ctx)
	if err != nil {
		return nil, err
	}
	return &TestBinaries{msgs: msgs, dec: b.decoder()}, nil
}

func (b *Build) decoder() decoder {
	return decoder{
		strict:   b.strict,
		observer: MultiObserver(log.NewMessageLogger(b.logger), b.observer),
	}
}
