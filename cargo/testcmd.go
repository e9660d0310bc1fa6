package cargo

import (
	"context"
	"os/exec"

	"github.com/pithecene-io/cargoexec/log"
)

// Test is a `cargo test` invocation.
type Test struct {
	spec   procSpec
	logger *log.Logger
}

// NewTest is shorthand for New().Test().
func NewTest() *Test {
	return New().Test()
}

// NoRun compiles the test harnesses without running them.
func (t *Test) NoRun() *Test {
	return t.Arg("--no-run")
}

// Release builds with the release profile.
func (t *Test) Release() *Test {
	return t.Arg("--release")
}

// Target builds for the given triple.
func (t *Test) Target(triple string) *Test {
	return t.Args("--target", triple)
}

// CurrentTarget builds for CurrentTarget().
func (t *Test) CurrentTarget() *Test {
	return t.Target(CurrentTarget())
}

// Arg appends a raw argument.
func (t *Test) Arg(arg string) *Test {
	t.spec.args = append(t.spec.args, arg)
	return t
}

// Args appends raw arguments.
func (t *Test) Args(args ...string) *Test {
	t.spec.args = append(t.spec.args, args...)
	return t
}

// Env sets an environment variable.
func (t *Test) Env(key, value string) *Test {
	t.spec.setEnv(key, value)
	return t
}

// EnvRemove removes an inherited environment variable.
func (t *Test) EnvRemove(key string) *Test {
	t.spec.removeEnv(key)
	return t
}

// Dir sets the working directory.
func (t *Test) Dir(dir string) *Test {
	t.spec.dir = dir
	return t
}

// Logger sets the logger. Nil selects a no-op logger.
func (t *Test) Logger(l *log.Logger) *Test {
	if l == nil {
		l = log.Nop()
	}
	t.logger = l
	return t
}

// Cmd returns the process the invocation would run.
func (t *Test) Cmd(ctx context.Context) *exec.Cmd {
	return t.spec.command(ctx)
}

// Exec starts the invocation and returns its raw output.
func (t *Test) Exec(ctx context.Context) (*Messages, error) {
	return start(t.Cmd(ctx), t.logger)
}
