package format

// DiagnosticLevel is the severity of a compiler diagnostic.
type DiagnosticLevel string

// Levels rustc emits.
const (
	LevelICE         DiagnosticLevel = "error: internal compiler error"
	LevelError       DiagnosticLevel = "error"
	LevelWarning     DiagnosticLevel = "warning"
	LevelFailureNote DiagnosticLevel = "failure-note"
	LevelNote        DiagnosticLevel = "note"
	LevelHelp        DiagnosticLevel = "help"
)

// Known reports whether l is one of the levels above.
func (l DiagnosticLevel) Known() bool {
	switch l {
	case LevelICE, LevelError, LevelWarning, LevelFailureNote, LevelNote, LevelHelp:
		return true
	}
	return false
}

// Diagnostic is a message from rustc.
type Diagnostic struct {
	// MessageType is "diagnostic" on records from recent compilers.
	MessageType string           `json:"$message_type,omitempty"`
	Message     string           `json:"message"`
	Code        *DiagnosticCode  `json:"code"`
	Level       DiagnosticLevel  `json:"level"`
	Spans       []DiagnosticSpan `json:"spans"`
	Children    []Diagnostic     `json:"children"`
	// Rendered is the message as rustc would print it to a terminal.
	Rendered *string `json:"rendered"`
}

// Text returns the rendered form when rustc supplied one, else the bare message.
func (d *Diagnostic) Text() string {
	if d.Rendered != nil {
		return *d.Rendered
	}
	return d.Message
}

func (d Diagnostic) normalized() Diagnostic {
	if d.Spans == nil {
		d.Spans = []DiagnosticSpan{}
	}
	if d.Children == nil {
		d.Children = []Diagnostic{}
	}
	return d
}

// DiagnosticCode identifies a class of diagnostic, such as E0308.
type DiagnosticCode struct {
	Code        string  `json:"code"`
	Explanation *string `json:"explanation"`
}

// DiagnosticSpan is a region of source a diagnostic points at.
// Byte offsets are zero-based; lines and columns are one-based.
type DiagnosticSpan struct {
	FileName    string               `json:"file_name"`
	ByteStart   uint32               `json:"byte_start"`
	ByteEnd     uint32               `json:"byte_end"`
	LineStart   int                  `json:"line_start"`
	LineEnd     int                  `json:"line_end"`
	ColumnStart int                  `json:"column_start"`
	ColumnEnd   int                  `json:"column_end"`
	IsPrimary   bool                 `json:"is_primary"`
	Text        []DiagnosticSpanLine `json:"text"`
	Label       *string              `json:"label"`
	// SuggestedReplacement is set on spans of a help diagnostic that carry a fix.
	SuggestedReplacement    *string                  `json:"suggested_replacement"`
	SuggestionApplicability *Applicability           `json:"suggestion_applicability"`
	Expansion               *DiagnosticSpanExpansion `json:"expansion"`
}

// DiagnosticSpanLine is one line of source covered by a span.
type DiagnosticSpanLine struct {
	Text           string `json:"text"`
	HighlightStart int    `json:"highlight_start"`
	HighlightEnd   int    `json:"highlight_end"`
}

// DiagnosticSpanExpansion records the macro expansion a span came from.
type DiagnosticSpanExpansion struct {
	Span          DiagnosticSpan  `json:"span"`
	MacroDeclName string          `json:"macro_decl_name"`
	DefSiteSpan   *DiagnosticSpan `json:"def_site_span"`
}

// Applicability says how confident rustc is in a suggested replacement.
type Applicability string

const (
	MachineApplicable Applicability = "MachineApplicable"
	HasPlaceholders   Applicability = "HasPlaceholders"
	MaybeIncorrect    Applicability = "MaybeIncorrect"
	Unspecified       Applicability = "Unspecified"
)
