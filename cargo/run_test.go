package cargo

import (
	"context"
	"strings"
	"testing"

	"github.com/pithecene-io/cargoexec/format"
)

func TestClassifyRun(t *testing.T) {
	tests := []struct {
		name     string
		msg      format.Message
		kind     string
		wantPath string
		wantOK   bool
	}{
		{
			name:     "bin artifact",
			msg:      &format.Artifact{Target: format.Target{Kind: []string{"bin"}, CrateTypes: []string{"bin"}}, Filenames: []string{"/tmp/x/bin1", "/tmp/x/bin1.d"}},
			kind:     KindBin,
			wantPath: "/tmp/x/bin1",
			wantOK:   true,
		},
		{
			name: "lib crate type",
			msg:  &format.Artifact{Target: format.Target{Kind: []string{"lib"}, CrateTypes: []string{"lib"}}, Filenames: []string{"/tmp/x/liba.rlib"}},
			kind: KindBin,
		},
		{
			name: "bin with extra crate type",
			msg:  &format.Artifact{Target: format.Target{Kind: []string{"bin"}, CrateTypes: []string{"bin", "rlib"}}, Filenames: []string{"/tmp/x/bin1"}},
			kind: KindBin,
		},
		{
			name: "test profile",
			msg:  &format.Artifact{Target: format.Target{Kind: []string{"bin"}, CrateTypes: []string{"bin"}}, Profile: format.ArtifactProfile{Test: true}, Filenames: []string{"/tmp/x/bin1-abcd"}},
			kind: KindBin,
		},
		{
			name: "example requested, bin built",
			msg:  &format.Artifact{Target: format.Target{Kind: []string{"bin"}, CrateTypes: []string{"bin"}}, Filenames: []string{"/tmp/x/bin1"}},
			kind: KindExample,
		},
		{
			name:     "example",
			msg:      &format.Artifact{Target: format.Target{Kind: []string{"example"}, CrateTypes: []string{"bin"}}, Filenames: []string{"/tmp/x/examples/demo"}},
			kind:     KindExample,
			wantPath: "/tmp/x/examples/demo",
			wantOK:   true,
		},
		{
			name: "not an artifact",
			msg:  &format.BuildFinished{Success: true},
			kind: KindBin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok, err := classifyRun(tt.msg, tt.kind)
			if err != nil {
				t.Fatalf("classifyRun: %v", err)
			}
			if ok != tt.wantOK || path != tt.wantPath {
				t.Errorf("classifyRun = (%q, %v), want (%q, %v)", path, ok, tt.wantPath, tt.wantOK)
			}
		})
	}
}

func TestClassifyRun_NoFilenames(t *testing.T) {
	msg := &format.Artifact{Target: format.Target{Name: "bin1", Kind: []string{"bin"}, CrateTypes: []string{"bin"}}}
	_, _, err := classifyRun(msg, KindBin)
	requireKind(t, err, InvalidOutput)
}

func resolveFake(t *testing.T, lines []string, isBin, isExample bool) (*Run, error) {
	t.Helper()
	msgs, _ := startFake(t, lines, "", 0)
	return resolveRun(msgs, isBin, isExample, decoder{})
}

func TestResolveRun_SingleBinary(t *testing.T) {
	lines := []string{
		artifact(t, "dep", withKind("lib"), withCrateTypes("lib"), withFilenames("/tmp/x/libdep.rlib")),
		artifact(t, "bin1"),
		finished(t, true),
	}
	run, err := resolveFake(t, lines, true, false)
	if err != nil {
		t.Fatalf("resolveRun: %v", err)
	}
	if run.Path() != "/tmp/x/bin1" || run.Kind() != KindBin {
		t.Errorf("run = (%q, %q), want (/tmp/x/bin1, bin)", run.Path(), run.Kind())
	}
}

func TestResolveRun_NoBinaries(t *testing.T) {
	lines := []string{
		artifact(t, "dep", withKind("lib"), withCrateTypes("lib")),
		finished(t, true),
	}
	_, err := resolveFake(t, lines, false, false)
	e := requireKind(t, err, CommandFailed)
	if e.Context != "No binaries in crate" {
		t.Errorf("Context = %q", e.Context)
	}
}

func TestResolveRun_Ambiguous(t *testing.T) {
	lines := []string{artifact(t, "bin1"), artifact(t, "bin2"), finished(t, true)}
	_, err := resolveFake(t, lines, true, false)
	e := requireKind(t, err, CommandFailed)
	if !strings.HasPrefix(e.Context, "Ambiguous which binary is intended: ") {
		t.Errorf("Context = %q", e.Context)
	}
	for _, want := range []string{"/tmp/x/bin1", "/tmp/x/bin2"} {
		if !strings.Contains(e.Context, want) {
			t.Errorf("Context %q does not list %s", e.Context, want)
		}
	}
}

func TestResolveRun_RepeatedArtifactIsNotAmbiguous(t *testing.T) {
	lines := []string{artifact(t, "bin1"), artifact(t, "bin1"), finished(t, true)}
	run, err := resolveFake(t, lines, false, false)
	if err != nil {
		t.Fatalf("resolveRun: %v", err)
	}
	if run.Path() != "/tmp/x/bin1" {
		t.Errorf("Path = %q", run.Path())
	}
}

func TestResolveRun_BinAndExampleSelected(t *testing.T) {
	msgs, cmd := startFake(t, []string{artifact(t, "bin1")}, "", 0)
	_, err := resolveRun(msgs, true, true, decoder{})
	e := requireKind(t, err, CommandFailed)
	if e.Context != "Ambiguous which binary is intended, multiple selected" {
		t.Errorf("Context = %q", e.Context)
	}
	if cmd.ProcessState == nil {
		t.Error("process was not reaped")
	}
}

func TestResolveRun_Example(t *testing.T) {
	lines := []string{
		artifact(t, "bin1"),
		artifact(t, "demo", withKind("example"), withFilenames("/tmp/x/examples/demo")),
		finished(t, true),
	}
	run, err := resolveFake(t, lines, false, true)
	if err != nil {
		t.Fatalf("resolveRun: %v", err)
	}
	if run.Path() != "/tmp/x/examples/demo" || run.Kind() != KindExample {
		t.Errorf("run = (%q, %q)", run.Path(), run.Kind())
	}
}

func TestResolveRun_TestProfileExcluded(t *testing.T) {
	lines := []string{
		artifact(t, "bin1", withTestProfile(), withFilenames("/tmp/x/bin1-abcd")),
		artifact(t, "bin1"),
		finished(t, true),
	}
	run, err := resolveFake(t, lines, false, false)
	if err != nil {
		t.Fatalf("resolveRun: %v", err)
	}
	if run.Path() != "/tmp/x/bin1" {
		t.Errorf("Path = %q, want /tmp/x/bin1", run.Path())
	}
}

func TestResolveRun_DecodeError(t *testing.T) {
	lines := []string{"warning: not json", artifact(t, "bin1"), finished(t, true)}
	_, err := resolveFake(t, lines, false, false)
	requireKind(t, err, InvalidOutput)
}

func TestResolveRun_BuildFailure(t *testing.T) {
	msgs, _ := startFake(t, []string{artifact(t, "bin1"), finished(t, false)}, "error: could not compile\n", 101)
	_, err := resolveRun(msgs, false, false, decoder{})
	e := requireKind(t, err, CommandFailed)
	if e.Context != "error: could not compile\n" {
		t.Errorf("Context = %q", e.Context)
	}
}

func TestResolveRun_Strict(t *testing.T) {
	lines := []string{`{"reason":"timing-info","unit":"bin1"}`, artifact(t, "bin1"), finished(t, true)}

	msgs, _ := startFake(t, lines, "", 0)
	if _, err := resolveRun(msgs, false, false, decoder{}); err != nil {
		t.Fatalf("lenient resolveRun: %v", err)
	}

	msgs, _ = startFake(t, lines, "", 0)
	_, err := resolveRun(msgs, false, false, decoder{strict: true})
	requireKind(t, err, InvalidOutput)
}

func TestResolveRun_ObserverSeesEveryMessage(t *testing.T) {
	lines := []string{
		artifact(t, "dep", withKind("lib"), withCrateTypes("lib")),
		artifact(t, "bin1"),
		finished(t, true),
	}
	var reasons []format.Reason
	obs := ObserverFunc(func(msg format.Message) { reasons = append(reasons, msg.Reason()) })

	msgs, _ := startFake(t, lines, "", 0)
	if _, err := resolveRun(msgs, false, false, decoder{observer: obs}); err != nil {
		t.Fatalf("resolveRun: %v", err)
	}
	want := []format.Reason{format.ReasonCompilerArtifact, format.ReasonCompilerArtifact, format.ReasonBuildFinished}
	if len(reasons) != len(want) {
		t.Fatalf("observed %v, want %v", reasons, want)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Errorf("reasons[%d] = %s, want %s", i, reasons[i], want[i])
		}
	}
}

func TestBuild_Run(t *testing.T) {
	script := fakeCargo(t, []string{artifact(t, "bin1"), finished(t, true)}, "", 0)

	var seen int
	run, err := NewWithBin("sh").Arg(script).
		Build().
		Bin("bin1").
		Observer(ObserverFunc(func(format.Message) { seen++ })).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Path() != "/tmp/x/bin1" {
		t.Errorf("Path = %q", run.Path())
	}
	if seen != 2 {
		t.Errorf("observer saw %d messages, want 2", seen)
	}

	cmd := run.Command(context.Background(), "--flag")
	if cmd.Path != "/tmp/x/bin1" || strings.Join(cmd.Args[1:], " ") != "--flag" {
		t.Errorf("Command = %v", cmd.Args)
	}
}

func TestBuild_RunInvalidCommand(t *testing.T) {
	_, err := NewWithBin("/nonexistent/cargo").Build().Run(context.Background())
	requireKind(t, err, InvalidCommand)
}
