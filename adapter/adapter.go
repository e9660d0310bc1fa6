// Package adapter defines the boundary for publishing invocation
// completion notices to downstream systems.
//
// A notice is published once per command, after cargo has finished and the
// outcome is known. Publishing failures never change the command's outcome.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventTypeInvocationCompleted is the event_type of every published notice.
const EventTypeInvocationCompleted = "invocation_completed"

// Outcome values.
const (
	OutcomeSuccess        = "success"
	OutcomeCommandFailed  = "command_failed"
	OutcomeInvalidCommand = "invalid_command"
	OutcomeInvalidOutput  = "invalid_output"
)

// InvocationCompletedEvent is the payload published when a command finishes.
type InvocationCompletedEvent struct {
	EventType    string `json:"event_type"` // always "invocation_completed"
	InvocationID string `json:"invocation_id"`
	Subcommand   string `json:"subcommand"`
	ManifestPath string `json:"manifest_path,omitempty"`
	Target       string `json:"target,omitempty"`
	Outcome      string `json:"outcome"`
	ExitCode     int    `json:"exit_code"`
	Error        string `json:"error,omitempty"`
	Timestamp    string `json:"timestamp"` // RFC 3339
	DurationMs   int64  `json:"duration_ms"`
	Messages     int64  `json:"messages"`
	Artifacts    int64  `json:"artifacts"`
	Warnings     int64  `json:"warnings"`
	Errors       int64  `json:"errors"`
}

// Adapter publishes invocation completion events to a downstream system.
type Adapter interface {
	// Publish sends event downstream. Must respect context cancellation
	// and deadlines.
	Publish(ctx context.Context, event *InvocationCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BackoffBase is the delay before the first retry. Each later retry
// doubles it.
var BackoffBase = 500 * time.Millisecond

// Retry calls op up to 1+retries times, backing off exponentially between
// attempts. It stops early when ctx is done or permanent reports that an
// error cannot succeed on retry; permanent may be nil.
func Retry(ctx context.Context, name string, retries int, op func(context.Context) error, permanent func(error) bool) error {
	attempts := 1 + retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BackoffBase
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}

// ErrNoURL is returned by adapter constructors given an empty URL.
var ErrNoURL = errors.New("adapter requires a URL")
