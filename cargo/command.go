package cargo

import (
	"github.com/pithecene-io/cargoexec/log"
)

// Command holds the parts of a cargo invocation that precede the
// subcommand: the program, toolchain arguments, working directory and
// environment. Build and Test copy it, so one Command can seed many
// invocations.
type Command struct {
	spec   procSpec
	logger *log.Logger
}

// New returns a Command for Bin().
func New() *Command {
	return NewWithBin(Bin())
}

// NewWithBin returns a Command that runs program in place of cargo.
func NewWithBin(program string) *Command {
	return &Command{
		spec:   procSpec{program: program},
		logger: log.Nop(),
	}
}

// Arg appends an argument placed before the subcommand, e.g. "+nightly".
func (c *Command) Arg(arg string) *Command {
	c.spec.args = append(c.spec.args, arg)
	return c
}

// Args appends arguments placed before the subcommand.
func (c *Command) Args(args ...string) *Command {
	c.spec.args = append(c.spec.args, args...)
	return c
}

// Dir sets the working directory.
func (c *Command) Dir(dir string) *Command {
	c.spec.dir = dir
	return c
}

// Env sets an environment variable for the process.
func (c *Command) Env(key, value string) *Command {
	c.spec.setEnv(key, value)
	return c
}

// EnvRemove removes an inherited environment variable.
func (c *Command) EnvRemove(key string) *Command {
	c.spec.removeEnv(key)
	return c
}

// Logger sets the logger for lifecycle and message logging. Nil selects a
// no-op logger.
func (c *Command) Logger(l *log.Logger) *Command {
	if l == nil {
		l = log.Nop()
	}
	c.logger = l
	return c
}

// Build starts a `cargo build --message-format=json` invocation.
func (c *Command) Build() *Build {
	spec := c.spec.clone()
	spec.args = append(spec.args, "build", "--message-format=json")
	return &Build{spec: spec, logger: c.logger}
}

// Test starts a `cargo test --message-format=json` invocation.
func (c *Command) Test() *Test {
	spec := c.spec.clone()
	spec.args = append(spec.args, "test", "--message-format=json")
	return &Test{spec: spec, logger: c.logger}
}
