package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/cargo"
	"github.com/pithecene-io/cargoexec/cli/render"
	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/iox"
	"github.com/pithecene-io/cargoexec/log"
)

// maxLineSize bounds one line of captured output. Rendered diagnostics
// can be long, so this is well above bufio's default.
const maxLineSize = 16 << 20

// DecodedLine is one line of captured output and what it decoded to.
type DecodedLine struct {
	Line    int    `json:"line" yaml:"line"`
	Kind    string `json:"kind" yaml:"kind"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DebugCommand returns the debug command with subcommands.
// Debug commands are diagnostic tools that never invoke cargo.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (decode captured output)",
		Subcommands: []*cli.Command{
			debugDecodeCommand(),
		},
	}
}

func debugDecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode captured cargo or test harness JSON output",
		ArgsUsage: "<file|->",
		Flags: append(OutputFlags(),
			&cli.BoolFlag{
				Name:  "events",
				Usage: "Decode as test harness events instead of cargo messages",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Reject output the schema does not describe",
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print cargo messages to stderr as cargo would",
			},
		),
		Action: debugDecodeAction,
	}
}

func debugDecodeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}
	if c.NArg() != 1 {
		return usageError(fmt.Errorf("expected exactly one input file (or - for stdin), got %d", c.NArg()))
	}

	var in io.Reader = os.Stdin
	if path := c.Args().First(); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return usageError(fmt.Errorf("cannot open %s: %w", path, err))
		}
		defer iox.DiscardClose(f)
		in = f
	}

	var observer cargo.Observer
	if c.Bool("print") {
		stderr := c.App.ErrWriter
		if stderr == nil {
			stderr = os.Stderr
		}
		observer = log.NewConsole(stderr, r.NoColor())
	}

	lines, err := decodeLines(in, c.Bool("events"), c.Bool("strict"), observer)
	if err != nil {
		return usageError(err)
	}
	if err := r.Render(lines); err != nil {
		return err
	}
	for _, l := range lines {
		if l.Error != "" {
			return cli.Exit("", exitInvalidOutput)
		}
	}
	return nil
}

// decodeLines decodes every non-blank line of in. Decode failures are
// recorded per line rather than stopping the scan.
func decodeLines(in io.Reader, events, strict bool, observer cargo.Observer) ([]DecodedLine, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	out := []DecodedLine{}
	n := 0
	for sc.Scan() {
		n++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		raw := cargo.NewMessage(sc.Text())
		line := DecodedLine{Line: n}

		if events {
			ev, err := decodeEventLine(raw, strict)
			if err != nil {
				line.Error = err.Error()
			} else {
				line.Kind, line.Summary = describeEvent(ev)
			}
		} else {
			msg, err := decodeMessageLine(raw, strict)
			if err != nil {
				line.Error = err.Error()
			} else {
				line.Kind, line.Summary = string(msg.Reason()), describeMessage(msg)
				if observer != nil {
					observer.Observe(msg)
				}
			}
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return out, nil
}

func decodeMessageLine(raw cargo.Message, strict bool) (format.Message, error) {
	if strict {
		return raw.DecodeStrict()
	}
	return raw.Decode()
}

func decodeEventLine(raw cargo.Message, strict bool) (format.Event, error) {
	if strict {
		return raw.DecodeEventStrict()
	}
	return raw.DecodeEvent()
}

func describeMessage(msg format.Message) string {
	switch v := msg.(type) {
	case *format.Artifact:
		return fmt.Sprintf("%s %v -> %s", v.Target.Name, v.Target.Kind, strings.Join(v.Filenames, ", "))
	case *format.FromCompiler:
		return fmt.Sprintf("%s: %s", v.Message.Level, v.Message.Message)
	case *format.BuildScript:
		return string(v.PackageID)
	case *format.BuildFinished:
		return fmt.Sprintf("success=%t", v.Success)
	default:
		return ""
	}
}

func describeEvent(ev format.Event) (string, string) {
	typ, event := ev.Kind()
	kind := typ
	if event != "" {
		kind = typ + " " + event
	}
	switch v := ev.(type) {
	case *format.SuiteStarted:
		return kind, fmt.Sprintf("%d tests", v.TestCount)
	case *format.SuiteOk:
		return kind, fmt.Sprintf("passed=%d failed=%d ignored=%d", v.Passed, v.Failed, v.Ignored)
	case *format.SuiteFailed:
		return kind, fmt.Sprintf("passed=%d failed=%d ignored=%d", v.Passed, v.Failed, v.Ignored)
	case *format.TestStarted:
		return kind, v.Name
	case *format.TestOk:
		return kind, v.Name
	case *format.TestFailed:
		return kind, v.Name
	case *format.TestIgnored:
		return kind, v.Name
	case *format.TestAllowedFailure:
		return kind, v.Name
	case *format.TestTimeout:
		return kind, v.Name
	case *format.Bench:
		return kind, fmt.Sprintf("%s median=%dns deviation=%dns", v.Name, v.Median, v.Deviation)
	default:
		return kind, ""
	}
}
