package cargo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"os/exec"
	"strings"

	"github.com/pithecene-io/cargoexec/format"
	"github.com/pithecene-io/cargoexec/iox"
	"github.com/pithecene-io/cargoexec/log"
)

// Messages is the line-delimited JSON output of a running cargo process.
//
// Lines are returned as soon as they are written, so callers see compiler
// diagnostics while the build is still running. Once output ends the process
// is waited on and a failed exit status is reported once, with the captured
// stderr as context.
//
// Messages must be drained to io.EOF or closed; Close reaps the process.
// A Messages value must not be used from more than one goroutine.
type Messages struct {
	cmd    *exec.Cmd
	pipe   io.ReadCloser
	stdout *bufio.Reader
	stderr *bytes.Buffer
	done   bool
	logger *log.Logger
}

// Start spawns cmd with stdout piped and stderr captured, and returns its
// messages. cmd must not have Stdout or Stderr set.
func Start(cmd *exec.Cmd) (*Messages, error) {
	return start(cmd, log.Nop())
}

func start(cmd *exec.Cmd, logger *log.Logger) (*Messages, error) {
	if cmd.Stderr != nil {
		return nil, newError(InvalidCommand, "", errors.New("exec: Stderr already set"))
	}
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, newError(InvalidCommand, "", err)
	}
	// exec copies stderr into the buffer concurrently, so a child that
	// writes a lot of progress to stderr cannot block on a full pipe while
	// we wait on stdout.
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		logger.Debug("spawn failed", map[string]any{"path": cmd.Path, "error": err.Error()})
		return nil, newError(InvalidCommand, "", err)
	}
	logger.Debug("spawned", map[string]any{
		"path": cmd.Path,
		"args": cmd.Args[1:],
		"pid":  cmd.Process.Pid,
	})

	return &Messages{
		cmd:    cmd,
		pipe:   pipe,
		stdout: bufio.NewReader(pipe),
		stderr: stderr,
		logger: logger,
	}, nil
}

// Next returns the next line of output.
//
// Errors:
//   - io.EOF: output ended and the process exited successfully, or the
//     stream was already terminated
//   - *Error with Kind=CommandFailed: the process exited with a failure
//     status; Context holds its stderr
//   - *Error with Kind=InvalidOutput: stdout could not be read, or waiting
//     on the process failed
func (m *Messages) Next() (Message, error) {
	if m.done {
		return Message{}, io.EOF
	}

	line, err := m.stdout.ReadString('\n')
	if len(line) > 0 {
		return Message{raw: strings.TrimRight(line, "\r\n")}, nil
	}
	if err != nil && err != io.EOF {
		return Message{}, newError(InvalidOutput, "", err)
	}
	return Message{}, m.finish()
}

// finish waits for the process after stdout reaches EOF and marks the
// stream terminated.
func (m *Messages) finish() error {
	err := m.cmd.Wait()
	m.done = true
	if err == nil {
		m.logger.Debug("exited", map[string]any{"pid": m.cmd.Process.Pid, "exit_code": 0})
		return io.EOF
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		m.logger.Debug("exited", map[string]any{"pid": m.cmd.Process.Pid, "exit_code": exitErr.ExitCode()})
		return newError(CommandFailed, strings.ToValidUTF8(m.stderr.String(), "�"), exitErr)
	}
	return newError(InvalidOutput, "", err)
}

// All returns the remaining lines as a sequence. The sequence ends after
// the first error. The stream is closed when iteration stops for any
// reason, including an early break.
func (m *Messages) All() iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		defer iox.DiscardErr(m.Close)
		for {
			msg, err := m.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Message{}, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Close terminates the stream. If the process has not been waited on yet,
// its stdout is closed and it is waited on; errors are discarded. Close is
// idempotent and always returns nil.
func (m *Messages) Close() error {
	if m.done {
		return nil
	}
	m.done = true
	iox.Reap(m.cmd.Wait, m.pipe)
	m.logger.Debug("reaped", map[string]any{"pid": m.cmd.Process.Pid})
	return nil
}

// Message is one line of output, expected to hold one JSON object.
type Message struct {
	raw string
}

// NewMessage wraps a line of previously captured output.
func NewMessage(line string) Message {
	return Message{raw: strings.TrimRight(line, "\r\n")}
}

// String returns the line without its terminator.
func (m Message) String() string {
	return m.raw
}

// Bytes returns a copy of the line.
func (m Message) Bytes() []byte {
	return []byte(m.raw)
}

// Decode parses the line as a cargo message. Unrecognized reasons decode
// as *format.Unknown.
func (m Message) Decode() (format.Message, error) {
	msg, err := format.Decode([]byte(m.raw))
	if err != nil {
		return nil, newError(InvalidOutput, "", err)
	}
	return msg, nil
}

// DecodeStrict parses the line as a cargo message, rejecting anything the
// schema does not describe.
func (m Message) DecodeStrict() (format.Message, error) {
	msg, err := format.DecodeStrict([]byte(m.raw))
	if err != nil {
		return nil, newError(InvalidOutput, "", err)
	}
	return msg, nil
}

// DecodeEvent parses the line as a test harness event.
func (m Message) DecodeEvent() (format.Event, error) {
	ev, err := format.DecodeEvent([]byte(m.raw))
	if err != nil {
		return nil, newError(InvalidOutput, "", err)
	}
	return ev, nil
}

// DecodeEventStrict parses the line as a test harness event, rejecting
// unknown fields and event kinds.
func (m Message) DecodeEventStrict() (format.Event, error) {
	ev, err := format.DecodeEventStrict([]byte(m.raw))
	if err != nil {
		return nil, newError(InvalidOutput, "", err)
	}
	return ev, nil
}

// DecodeInto unmarshals the line into v, for callers with their own schema.
func (m Message) DecodeInto(v any) error {
	if err := json.Unmarshal([]byte(m.raw), v); err != nil {
		return newError(InvalidOutput, "", err)
	}
	return nil
}
