package cargo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed cargo invocation.
type ErrorKind int

const (
	// InvalidCommand means the process could not be spawned.
	InvalidCommand ErrorKind = iota + 1
	// CommandFailed means the process exited with a failure status, or the
	// requested artifact could not be resolved from its output.
	CommandFailed
	// InvalidOutput means a line of output could not be read or decoded.
	InvalidOutput
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCommand:
		return "spawning the cargo subcommand failed"
	case CommandFailed:
		return "the cargo subcommand returned an error"
	case InvalidOutput:
		return "parsing the cargo subcommand's output failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinel errors for classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrCommandFailed  = errors.New("command failed")
	ErrInvalidOutput  = errors.New("invalid output")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidCommand:
		return ErrInvalidCommand
	case CommandFailed:
		return ErrCommandFailed
	case InvalidOutput:
		return ErrInvalidOutput
	default:
		return nil
	}
}

// Error describes a failed cargo invocation.
type Error struct {
	Kind ErrorKind
	// Context is human-readable detail: captured stderr, or a description
	// of why an artifact could not be resolved.
	Context string
	// Err is the underlying cause, if any.
	Err error
}

func newError(kind ErrorKind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Err: cause}
}

// Error renders a summary line, then the context and cause on lines of their own.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("cargo command failed: ")
	b.WriteString(e.Kind.String())
	if ctx := strings.TrimRight(e.Context, "\n"); ctx != "" {
		b.WriteByte('\n')
		b.WriteString(ctx)
	}
	if e.Err != nil {
		b.WriteString("\nCause: ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
