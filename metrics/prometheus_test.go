package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/pithecene-io/cargoexec/format"
)

func TestPrometheus_RegistersCleanly(t *testing.T) {
	reg := prom.NewRegistry()
	if err := reg.Register(NewPrometheus(NewCollector("build", ""))); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"cargoexec_invocations_total", "cargoexec_decode_errors_total", "cargoexec_artifacts_total"} {
		if !names[want] {
			t.Errorf("missing metric family %s", want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector("build", "x86_64-unknown-linux-gnu")
	c.IncInvocationStarted()
	c.IncInvocationSucceeded()
	c.IncDecodeError()
	c.Observe(&format.Artifact{Fresh: true})
	c.Observe(&format.Artifact{})
	c.Observe(&format.FromCompiler{Message: format.Diagnostic{Level: format.LevelWarning}})
	c.Observe(&format.BuildFinished{Success: true})

	path := filepath.Join(t.TempDir(), "cargoexec.prom")
	if err := WriteTextfile(path, c); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)

	const dims = `subcommand="build",target="x86_64-unknown-linux-gnu"`
	for _, want := range []string{
		`# TYPE cargoexec_messages_total counter`,
		`cargoexec_invocations_total{outcome="started",` + dims + `} 1`,
		`cargoexec_invocations_total{outcome="failed",` + dims + `} 0`,
		`cargoexec_decode_errors_total{` + dims + `} 1`,
		`cargoexec_messages_total{reason="compiler-artifact",` + dims + `} 2`,
		`cargoexec_artifacts_total{fresh="true",` + dims + `} 1`,
		`cargoexec_artifacts_total{fresh="false",` + dims + `} 1`,
		`cargoexec_diagnostics_total{level="warning",` + dims + `} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTextfile_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "cargoexec.prom")
	if err := WriteTextfile(path, NewCollector("build", "")); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}
