package format

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event type discriminators written by libtest.
const (
	EventTypeSuite = "suite"
	EventTypeTest  = "test"
	EventTypeBench = "bench"
)

// Event is one record written by a test harness run with --format json.
// The "type" field selects suite, test or bench; suite and test records are
// further discriminated by "event".
type Event interface {
	// Kind returns the type and event discriminators. Bench events have no
	// event discriminator.
	Kind() (typ, event string)
	isEvent()
}

// SuiteStarted opens a suite.
type SuiteStarted struct {
	TestCount int `json:"test_count"`
}

// SuiteSummary holds the counts reported when a suite finishes.
type SuiteSummary struct {
	Passed      int      `json:"passed"`
	Failed      int      `json:"failed"`
	AllowedFail int      `json:"allowed_fail,omitempty"`
	Ignored     int      `json:"ignored"`
	Measured    int      `json:"measured"`
	FilteredOut int      `json:"filtered_out"`
	ExecTime    *float64 `json:"exec_time,omitempty"`
}

// SuiteOk closes a suite in which every case passed.
type SuiteOk struct {
	SuiteSummary
}

// SuiteFailed closes a suite in which at least one case failed.
type SuiteFailed struct {
	SuiteSummary
}

// TestStarted opens a test case.
type TestStarted struct {
	Name string `json:"name"`
}

// TestOk reports a passing case.
type TestOk struct {
	Name     string   `json:"name"`
	ExecTime *float64 `json:"exec_time,omitempty"`
}

// TestFailed reports a failing case and whatever it printed.
type TestFailed struct {
	Name     string   `json:"name"`
	Stdout   *string  `json:"stdout,omitempty"`
	Message  *string  `json:"message,omitempty"`
	ExecTime *float64 `json:"exec_time,omitempty"`
}

// TestIgnored reports a skipped case.
type TestIgnored struct {
	Name    string  `json:"name"`
	Message *string `json:"message,omitempty"`
}

// TestAllowedFailure reports a case that failed but was allowed to.
type TestAllowedFailure struct {
	Name string `json:"name"`
}

// TestTimeout reports a case still running past the harness warning threshold.
type TestTimeout struct {
	Name string `json:"name"`
}

// Bench reports one benchmark. Median and Deviation are in nanoseconds per iteration.
type Bench struct {
	Name         string `json:"name"`
	Median       int    `json:"median"`
	Deviation    int    `json:"deviation"`
	MibPerSecond *int   `json:"mib_per_second,omitempty"`
}

// UnknownEvent is an event this package does not recognize.
type UnknownEvent struct {
	Type  string
	Event string
	Raw   json.RawMessage
}

func (*SuiteStarted) Kind() (string, string)       { return EventTypeSuite, "started" }
func (*SuiteOk) Kind() (string, string)            { return EventTypeSuite, "ok" }
func (*SuiteFailed) Kind() (string, string)        { return EventTypeSuite, "failed" }
func (*TestStarted) Kind() (string, string)        { return EventTypeTest, "started" }
func (*TestOk) Kind() (string, string)             { return EventTypeTest, "ok" }
func (*TestFailed) Kind() (string, string)         { return EventTypeTest, "failed" }
func (*TestIgnored) Kind() (string, string)        { return EventTypeTest, "ignored" }
func (*TestAllowedFailure) Kind() (string, string) { return EventTypeTest, "allowed_failure" }
func (*TestTimeout) Kind() (string, string)        { return EventTypeTest, "timeout" }
func (*Bench) Kind() (string, string)              { return EventTypeBench, "" }
func (u *UnknownEvent) Kind() (string, string)     { return u.Type, u.Event }

func (*SuiteStarted) isEvent()       {}
func (*SuiteOk) isEvent()            {}
func (*SuiteFailed) isEvent()        {}
func (*TestStarted) isEvent()        {}
func (*TestOk) isEvent()             {}
func (*TestFailed) isEvent()         {}
func (*TestIgnored) isEvent()        {}
func (*TestAllowedFailure) isEvent() {}
func (*TestTimeout) isEvent()        {}
func (*Bench) isEvent()              {}
func (*UnknownEvent) isEvent()       {}

var (
	nameShape         = shape{required: []string{"name"}}
	suiteStartedShape = shape{required: []string{"test_count"}}
	suiteSummaryShape = shape{required: []string{"passed", "failed", "ignored", "measured", "filtered_out"}}
	benchShape        = shape{required: []string{"name", "median", "deviation"}}
)

// newEvent returns an empty event for the discriminators and the shape it
// must satisfy, or nil if the pair is not recognized.
func newEvent(typ, event string) (Event, shape) {
	switch typ {
	case EventTypeSuite:
		switch event {
		case "started":
			return &SuiteStarted{}, suiteStartedShape
		case "ok":
			return &SuiteOk{}, suiteSummaryShape
		case "failed":
			return &SuiteFailed{}, suiteSummaryShape
		}
	case EventTypeTest:
		switch event {
		case "started":
			return &TestStarted{}, nameShape
		case "ok":
			return &TestOk{}, nameShape
		case "failed":
			return &TestFailed{}, nameShape
		case "ignored":
			return &TestIgnored{}, nameShape
		case "allowed_failure":
			return &TestAllowedFailure{}, nameShape
		case "timeout":
			return &TestTimeout{}, nameShape
		}
	case EventTypeBench:
		return &Bench{}, benchShape
	}
	return nil, shape{}
}

// DecodeEvent parses one test harness record. Unrecognized discriminators
// yield *UnknownEvent.
func DecodeEvent(data []byte) (Event, error) {
	return decodeEvent(data, false)
}

// DecodeEventStrict parses one test harness record, rejecting unrecognized
// discriminators and undeclared fields.
func DecodeEventStrict(data []byte) (Event, error) {
	return decodeEvent(data, true)
}

func decodeEvent(data []byte, strict bool) (Event, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	typ, err := stringField(obj, "type")
	if err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	event, err := stringField(obj, "event")
	if err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	ev, s := newEvent(typ, event)
	if ev == nil {
		if strict {
			return nil, fmt.Errorf("decode event: unknown event %q/%q", typ, event)
		}
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &UnknownEvent{Type: typ, Event: event, Raw: raw}, nil
	}
	if err := decodeVariant(obj, s, strict, ev, "type", "event"); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", typ, err)
	}
	return ev, nil
}

// EncodeEvent renders ev as one JSON object carrying its discriminators.
func EncodeEvent(ev Event) ([]byte, error) {
	if u, ok := ev.(*UnknownEvent); ok {
		if len(u.Raw) == 0 {
			return nil, errors.New("encode unknown event: no raw record")
		}
		return append([]byte(nil), u.Raw...), nil
	}
	typ, event := ev.Kind()
	if event == "" {
		return encodeTagged(ev, "type", typ)
	}
	return encodeTagged(ev, "type", typ, "event", event)
}
