package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cargo"
	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/iox"
	"github.com/pithecene-io/cargoexec/metrics"
)

// TestBinaryResult describes one test harness and, after --exec, its results.
type TestBinaryResult struct {
	Name    string `json:"name" yaml:"name"`
	Kind    string `json:"kind" yaml:"kind"`
	Path    string `json:"path" yaml:"path"`
	Passed  int    `json:"passed,omitempty" yaml:"passed,omitempty"`
	Failed  int    `json:"failed,omitempty" yaml:"failed,omitempty"`
	Ignored int    `json:"ignored,omitempty" yaml:"ignored,omitempty"`
	// FailedTests names the failing cases.
	FailedTests []string `json:"failed_tests,omitempty" yaml:"failed_tests,omitempty"`
}

// TestResponse is the response for the test command.
type TestResponse struct {
	Binaries     []TestBinaryResult `json:"binaries" yaml:"binaries"`
	DecodeErrors int                `json:"decode_errors" yaml:"decode_errors"`
	Stats        *metrics.Snapshot  `json:"stats,omitempty" yaml:"stats,omitempty"`
}

func (r *TestResponse) setStats(s *metrics.Snapshot) { r.Stats = s }

// TestCommand returns the test command.
// It builds every test target and lists the harnesses as the build reports
// them. With --exec each harness is run in JSON event mode, with the
// trailing arguments as filters, and its results are tallied.
func TestCommand() *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     "Build test harnesses and optionally run them",
		ArgsUsage: "[-- filters...]",
		Flags: append(CargoFlags(),
			&cli.BoolFlag{
				Name:  "exec",
				Usage: "Run each harness (requires nightly or RUSTC_BOOTSTRAP=1)",
			},
		),
		Action: testAction,
	}
}

func testAction(c *cli.Context) (err error) {
	s, err := newSession(c, "test")
	if err != nil {
		return err
	}
	defer func() { s.close(err) }()

	s.collector.IncInvocationStarted()
	bins, err := s.build().Tests().RunTests(s.ctx)
	if err != nil {
		return s.fail(err)
	}
	defer iox.DiscardClose(bins)

	resp := &TestResponse{Binaries: []TestBinaryResult{}}
	var harnesses []*cargo.TestBinary
	for bin, err := range bins.All() {
		if err != nil {
			if kind, _ := cargo.KindOf(err); kind != cargo.InvalidOutput || s.opts.strict {
				return s.fail(err)
			}
			s.collector.IncDecodeError()
			resp.DecodeErrors++
			s.logger.Warn("skipping undecodable line", map[string]any{"error": err.Error()})
			continue
		}
		s.logger.Debug("test binary", map[string]any{"name": bin.Name(), "kind": bin.Kind(), "path": bin.Path()})
		harnesses = append(harnesses, bin)
		resp.Binaries = append(resp.Binaries, TestBinaryResult{Name: bin.Name(), Kind: bin.Kind(), Path: bin.Path()})
	}
	s.collector.IncInvocationSucceeded()

	if !c.Bool("exec") {
		return s.render(resp)
	}

	failed := false
	for i, bin := range harnesses {
		if err := s.runHarness(bin, c.Args().Slice(), &resp.Binaries[i]); err != nil {
			return s.fail(err)
		}
		r := resp.Binaries[i]
		s.logger.Sugar().With("harness", r.Name).Infof("%d passed, %d failed, %d ignored", r.Passed, r.Failed, r.Ignored)
		failed = failed || r.Failed > 0
	}
	if err := s.render(resp); err != nil {
		return err
	}
	if failed {
		return cli.Exit("", exitCommandFailed)
	}
	return nil
}

// runHarness executes bin and tallies its events into result. A harness
// exiting with failure after reporting failed cases is a test failure,
// not an invocation error.
func (s *session) runHarness(bin *cargo.TestBinary, filters []string, result *TestBinaryResult) error {
	s.collector.IncInvocationStarted()
	msgs, err := bin.Exec(s.ctx, filters...)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(msgs)

	for raw, err := range msgs.All() {
		if err != nil {
			if kind, _ := cargo.KindOf(err); kind == cargo.CommandFailed && result.Failed > 0 {
				s.collector.IncInvocationFailed()
				return nil
			}
			return err
		}

		ev, err := s.decodeEvent(raw)
		if err != nil {
			if s.opts.strict {
				return err
			}
			s.collector.IncDecodeError()
			s.logger.Warn("skipping undecodable event", map[string]any{"harness": bin.Name(), "line": raw.String()})
			continue
		}

		switch v := ev.(type) {
		case *format.TestOk:
			result.Passed++
		case *format.TestFailed:
			result.Failed++
			result.FailedTests = append(result.FailedTests, v.Name)
			fields := map[string]any{"harness": bin.Name(), "test": v.Name}
			if v.Stdout != nil {
				fields["stdout"] = *v.Stdout
			}
			s.logger.Error("test failed", fields)
		case *format.TestIgnored:
			result.Ignored++
		case *format.TestTimeout:
			s.logger.Warn("test running long", map[string]any{"harness": bin.Name(), "test": v.Name})
		}
	}
	s.collector.IncInvocationSucceeded()
	return nil
}

func (s *session) decodeEvent(raw cargo.Message) (format.Event, error) {
	if s.opts.strict {
		return raw.DecodeEventStrict()
	}
	return raw.DecodeEvent()
}
