package cargo

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os/exec"

	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/iox"
)

// TestBinary is a compiled test harness produced by a build.
type TestBinary struct {
	path string
	kind string
	name string
}

// Path is the absolute path of the harness executable.
func (b *TestBinary) Path() string { return b.path }

// Kind is the target kind the harness was built for, such as "lib", "bin"
// or "test".
func (b *TestBinary) Kind() string { return b.kind }

// Name is the target name.
func (b *TestBinary) Name() string { return b.name }

// Command prepares an invocation of the harness.
func (b *TestBinary) Command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, b.path, args...)
}

// Exec runs the harness with JSON event output and returns its events.
// args, such as test name filters, follow the format flags. Decode the
// events with Message.DecodeEvent.
//
// JSON output is unstable in libtest, so the harness must come from a
// nightly toolchain or run with RUSTC_BOOTSTRAP=1.
func (b *TestBinary) Exec(ctx context.Context, args ...string) (*Messages, error) {
	return Start(b.Command(ctx, append([]string{"-Z", "unstable-options", "--format", "json"}, args...)...))
}

// classifyTest reports a test binary if msg is an artifact built with the
// test profile.
func classifyTest(msg format.Message) (*TestBinary, bool, error) {
	art, ok := msg.(*format.Artifact)
	if !ok || !art.Profile.Test {
		return nil, false, nil
	}
	if len(art.Filenames) == 0 || len(art.Target.Kind) == 0 {
		return nil, false, newError(InvalidOutput, fmt.Sprintf("test artifact for target %q lists no files or kinds", art.Target.Name), nil)
	}
	return &TestBinary{
		path: art.Filenames[0],
		kind: art.Target.Kind[0],
		name: art.Target.Name,
	}, true, nil
}

// TestBinaries lazily yields the test harnesses a build produces, as the
// build reports them.
type TestBinaries struct {
	msgs *Messages
	dec  decoder
}

// Next returns the next test binary.
//
// A decode error is returned for the offending line only; calling Next again
// continues with the following line. A stream error ends the sequence, and
// every later call returns io.EOF.
func (t *TestBinaries) Next() (*TestBinary, error) {
	for {
		raw, err := t.msgs.Next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			_ = t.msgs.Close()
			return nil, err
		}
		msg, err := t.dec.decode(raw)
		if err != nil {
			return nil, err
		}
		bin, ok, err := classifyTest(msg)
		if err != nil {
			return nil, err
		}
		if ok {
			return bin, nil
		}
	}
}

// All returns the remaining test binaries as a sequence. Decode errors are
// yielded in place and iteration continues. The build is reaped when
// iteration stops.
func (t *TestBinaries) All() iter.Seq2[*TestBinary, error] {
	return func(yield func(*TestBinary, error) bool) {
		defer iox.DiscardErr(t.Close)
		for {
			bin, err := t.Next()
			if err == io.EOF {
				return
			}
			if !yield(bin, err) {
				return
			}
		}
	}
}

// Close reaps the build. It is idempotent.
func (t *TestBinaries) Close() error {
	return t.msgs.Close()
}
