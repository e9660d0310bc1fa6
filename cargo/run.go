package cargo

import (
	"context"
	"fmt"
	"os/exec"
	"slices"

	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/iox"
)

// Target kinds an executable can be resolved for.
const (
	KindBin     = "bin"
	KindExample = "example"
)

// Run is a binary or example produced by a build.
type Run struct {
	path string
	kind string
}

// Path is the absolute path of the executable.
func (r *Run) Path() string { return r.path }

// Kind is KindBin or KindExample.
func (r *Run) Kind() string { return r.kind }

// Command prepares an invocation of the executable.
func (r *Run) Command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, r.path, args...)
}

// classifyRun reports the executable path if msg is a non-test artifact
// whose only crate type is bin and whose only kind is kind.
func classifyRun(msg format.Message, kind string) (string, bool, error) {
	art, ok := msg.(*format.Artifact)
	if !ok || art.Profile.Test {
		return "", false, nil
	}
	if !slices.Equal(art.Target.CrateTypes, []string{"bin"}) || !slices.Equal(art.Target.Kind, []string{kind}) {
		return "", false, nil
	}
	if len(art.Filenames) == 0 {
		return "", false, newError(InvalidOutput, fmt.Sprintf("artifact for %s target %q lists no files", kind, art.Target.Name), nil)
	}
	return art.Filenames[0], true, nil
}

// resolveRun consumes msgs and returns the single executable they
// describe. msgs is closed on every path.
func resolveRun(msgs *Messages, isBin, isExample bool, d decoder) (*Run, error) {
	defer iox.DiscardErr(msgs.Close)

	if isBin && isExample {
		return nil, newError(CommandFailed, "Ambiguous which binary is intended, multiple selected", nil)
	}
	kind := KindBin
	if isExample {
		kind = KindExample
	}

	var paths []string
	for raw, err := range msgs.All() {
		if err != nil {
			return nil, err
		}
		msg, err := d.decode(raw)
		if err != nil {
			return nil, err
		}
		path, ok, err := classifyRun(msg, kind)
		if err != nil {
			return nil, err
		}
		if ok && !slices.Contains(paths, path) {
			paths = append(paths, path)
		}
	}

	switch len(paths) {
	case 0:
		return nil, newError(CommandFailed, "No binaries in crate", nil)
	case 1:
		return &Run{path: paths[0], kind: kind}, nil
	default:
		return nil, newError(CommandFailed, fmt.Sprintf("Ambiguous which binary is intended: %q", paths), nil)
	}
}
