package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cargo"
	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/log"
	"github.com/pithecene-io/cargoexec/metrics"
)

// ArtifactSummary describes one compiled target.
type ArtifactSummary struct {
	Target string   `json:"target" yaml:"target"`
	Kind   string   `json:"kind" yaml:"kind"`
	Path   string   `json:"path" yaml:"path"`
	Test   bool     `json:"test" yaml:"test"`
	Fresh  bool     `json:"fresh" yaml:"fresh"`
	Files  []string `json:"files" yaml:"files"`
}

// BuildResponse is the response for the build command.
type BuildResponse struct {
	Success      bool              `json:"success" yaml:"success"`
	Artifacts    []ArtifactSummary `json:"artifacts" yaml:"artifacts"`
	Warnings     int               `json:"warnings" yaml:"warnings"`
	Errors       int               `json:"errors" yaml:"errors"`
	DecodeErrors int               `json:"decode_errors" yaml:"decode_errors"`
	Stats        *metrics.Snapshot `json:"stats,omitempty" yaml:"stats,omitempty"`
}

func (r *BuildResponse) setStats(s *metrics.Snapshot) { r.Stats = s }

// BuildCommand returns the build command.
// It streams `cargo build` output, observing each message as it arrives,
// and summarizes the artifacts produced.
func BuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build with cargo and summarize the artifacts produced",
		Flags: append(CargoFlags(),
			&cli.StringSliceFlag{
				Name:  "bin",
				Usage: "Build only the named binary (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "example",
				Usage: "Build only the named example (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "tests",
				Usage: "Build all test targets",
			},
		),
		Action: buildAction,
	}
}

func buildAction(c *cli.Context) (err error) {
	s, err := newSession(c, "build")
	if err != nil {
		return err
	}
	defer func() { s.close(err) }()

	b := s.build()
	for _, name := range c.StringSlice("bin") {
		b.Bin(name)
	}
	for _, name := range c.StringSlice("example") {
		b.Example(name)
	}
	if c.Bool("tests") {
		b.Tests()
	}

	s.collector.IncInvocationStarted()
	msgs, err := b.Exec(s.ctx)
	if err != nil {
		return s.fail(err)
	}

	resp, err := s.consumeBuild(msgs)
	if err != nil {
		return s.fail(err)
	}
	s.collector.IncInvocationSucceeded()
	return s.render(resp)
}

// consumeBuild drains msgs, logging and observing every decoded message.
// Undecodable lines are counted and skipped unless the session is strict.
func (s *session) consumeBuild(msgs *cargo.Messages) (*BuildResponse, error) {
	observer := cargo.MultiObserver(log.NewMessageLogger(s.logger), s.observer)
	resp := &BuildResponse{Artifacts: []ArtifactSummary{}}

	for raw, err := range msgs.All() {
		if err != nil {
			return nil, err
		}
		msg, err := s.decode(raw)
		if err != nil {
			if s.opts.strict {
				return nil, err
			}
			s.collector.IncDecodeError()
			resp.DecodeErrors++
			s.logger.Warn("skipping undecodable line", map[string]any{"line": raw.String(), "error": err.Error()})
			continue
		}
		observer.Observe(msg)

		switch v := msg.(type) {
		case *format.Artifact:
			resp.Artifacts = append(resp.Artifacts, summarize(v))
		case *format.FromCompiler:
			switch v.Message.Level {
			case format.LevelWarning:
				resp.Warnings++
			case format.LevelError, format.LevelICE:
				resp.Errors++
			}
		case *format.BuildFinished:
			resp.Success = v.Success
		}
	}
	return resp, nil
}

func (s *session) decode(raw cargo.Message) (format.Message, error) {
	if s.opts.strict {
		return raw.DecodeStrict()
	}
	return raw.Decode()
}

func summarize(a *format.Artifact) ArtifactSummary {
	sum := ArtifactSummary{
		Target: a.Target.Name,
		Test:   a.Profile.Test,
		Fresh:  a.Fresh,
		Files:  a.Filenames,
	}
	if len(a.Target.Kind) > 0 {
		sum.Kind = a.Target.Kind[0]
	}
	switch {
	case a.Executable != nil:
		sum.Path = *a.Executable
	case len(a.Filenames) > 0:
		sum.Path = a.Filenames[0]
	}
	return sum
}
