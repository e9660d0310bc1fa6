package cargo

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/iox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCargo writes a shell script that prints stdout lines, writes stderr,
// and exits with code. It returns the script path; run it with sh.
func fakeCargo(t *testing.T, stdout []string, stderr string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	outPath := filepath.Join(dir, "stdout")
	errPath := filepath.Join(dir, "stderr")
	out := strings.Join(stdout, "\n")
	if len(stdout) > 0 {
		out += "\n"
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		t.Fatalf("write stdout fixture: %v", err)
	}
	if err := os.WriteFile(errPath, []byte(stderr), 0o644); err != nil {
		t.Fatalf("write stderr fixture: %v", err)
	}
	script := "cat '" + outPath + "'\ncat '" + errPath + "' >&2\nexit " + strconv.Itoa(code) + "\n"
	path := filepath.Join(dir, "cargo.sh")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// startFake starts a fake cargo and registers its cleanup.
func startFake(t *testing.T, stdout []string, stderr string, code int) (*Messages, *exec.Cmd) {
	t.Helper()
	cmd := exec.Command("sh", fakeCargo(t, stdout, stderr, code))
	msgs, err := Start(cmd)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(iox.CloseFunc(msgs))
	return msgs, cmd
}

type artifactOpt func(*format.Artifact)

func withKind(kind ...string) artifactOpt {
	return func(a *format.Artifact) { a.Target.Kind = kind }
}

func withCrateTypes(types ...string) artifactOpt {
	return func(a *format.Artifact) { a.Target.CrateTypes = types }
}

func withTestProfile() artifactOpt {
	return func(a *format.Artifact) { a.Profile.Test = true }
}

func withFilenames(files ...string) artifactOpt {
	return func(a *format.Artifact) { a.Filenames = files }
}

// artifact encodes a compiler-artifact line for a bin target named name.
func artifact(t *testing.T, name string, opts ...artifactOpt) string {
	t.Helper()
	a := &format.Artifact{
		PackageID: format.PackageID(name + " 0.1.0 (path+file:///tmp/" + name + ")"),
		Target: format.Target{
			Name:       name,
			Kind:       []string{"bin"},
			CrateTypes: []string{"bin"},
			SrcPath:    "/tmp/" + name + "/src/main.rs",
			Edition:    "2021",
		},
		Profile:   format.ArtifactProfile{OptLevel: "0"},
		Features:  []string{},
		Filenames: []string{"/tmp/x/" + name},
	}
	for _, opt := range opts {
		opt(a)
	}
	return encode(t, a)
}

func encode(t *testing.T, msg format.Message) string {
	t.Helper()
	data, err := format.Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return string(data)
}

func finished(t *testing.T, success bool) string {
	return encode(t, &format.BuildFinished{Success: success})
}

func requireKind(t *testing.T, err error, want ErrorKind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("Kind = %v, want %v (%v)", e.Kind, want, err)
	}
	return e
}
