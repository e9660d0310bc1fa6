// Package metrics provides per-invocation counters for cargo subcommand runs.
//
// The Collector accumulates counters while one or more subcommands run. It
// observes decoded messages directly, so it can be installed alongside any
// other observer; process outcomes are recorded by the caller.
package metrics

import (
	"sync"

	"github.com/pithecene-io/cargoexec/format"
)

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Process lifecycle
	InvocationsStarted   int64 `json:"invocations_started" yaml:"invocations_started"`
	InvocationsSucceeded int64 `json:"invocations_succeeded" yaml:"invocations_succeeded"`
	InvocationsFailed    int64 `json:"invocations_failed" yaml:"invocations_failed"`
	LaunchFailures       int64 `json:"launch_failures" yaml:"launch_failures"`
	DecodeErrors         int64 `json:"decode_errors" yaml:"decode_errors"`

	// Messages
	Messages           int64            `json:"messages" yaml:"messages"`
	MessagesByReason   map[string]int64 `json:"messages_by_reason" yaml:"messages_by_reason"`
	Artifacts          int64            `json:"artifacts" yaml:"artifacts"`
	FreshArtifacts     int64            `json:"fresh_artifacts" yaml:"fresh_artifacts"`
	DiagnosticsByLevel map[string]int64 `json:"diagnostics_by_level" yaml:"diagnostics_by_level"`

	// Dimensions (informational, set at construction)
	Subcommand string `json:"subcommand" yaml:"subcommand"`
	Target     string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	invocationsStarted   int64
	invocationsSucceeded int64
	invocationsFailed    int64
	launchFailures       int64
	decodeErrors         int64

	messages           int64
	messagesByReason   map[string]int64
	artifacts          int64
	freshArtifacts     int64
	diagnosticsByLevel map[string]int64

	subcommand string
	target     string
}

// NewCollector creates a Collector with dimension labels. target may be empty.
func NewCollector(subcommand, target string) *Collector {
	return &Collector{
		messagesByReason:   make(map[string]int64),
		diagnosticsByLevel: make(map[string]int64),
		subcommand:         subcommand,
		target:             target,
	}
}

// --- Process lifecycle ---

// IncInvocationStarted records an attempted invocation.
func (c *Collector) IncInvocationStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.invocationsStarted++
	c.mu.Unlock()
}

// IncInvocationSucceeded records a run whose output was fully consumed without error.
func (c *Collector) IncInvocationSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.invocationsSucceeded++
	c.mu.Unlock()
}

// IncInvocationFailed records a failed exit status or an unsatisfied artifact request.
func (c *Collector) IncInvocationFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.invocationsFailed++
	c.mu.Unlock()
}

// IncLaunchFailure records a process that could not be spawned.
func (c *Collector) IncLaunchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.launchFailures++
	c.mu.Unlock()
}

// IncDecodeError records an output line that could not be decoded.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

// --- Messages ---

// Observe counts msg by reason, and artifacts and diagnostics by kind.
func (c *Collector) Observe(msg format.Message) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages++
	c.messagesByReason[string(msg.Reason())]++
	switch v := msg.(type) {
	case *format.Artifact:
		c.artifacts++
		if v.Fresh {
			c.freshArtifacts++
		}
	case *format.FromCompiler:
		c.diagnosticsByLevel[string(v.Message.Level)]++
	}
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		InvocationsStarted:   c.invocationsStarted,
		InvocationsSucceeded: c.invocationsSucceeded,
		InvocationsFailed:    c.invocationsFailed,
		LaunchFailures:       c.launchFailures,
		DecodeErrors:         c.decodeErrors,

		Messages:           c.messages,
		MessagesByReason:   copyCounts(c.messagesByReason),
		Artifacts:          c.artifacts,
		FreshArtifacts:     c.freshArtifacts,
		DiagnosticsByLevel: copyCounts(c.diagnosticsByLevel),

		Subcommand: c.subcommand,
		Target:     c.target,
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
