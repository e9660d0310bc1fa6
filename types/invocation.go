// Package types defines values shared by the logging, metrics and CLI layers.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Invocation identifies one cargo subcommand run for log and metric context.
type Invocation struct {
	// ID correlates log records and notices from one command. Optional;
	// when set it must be a UUID.
	ID string
	// Subcommand is the cargo subcommand, such as "build" or "test".
	Subcommand string
	// ManifestPath is the Cargo.toml the run targets. Empty means cargo's default lookup.
	ManifestPath string
	// Target is the target triple, if one was requested.
	Target string
}

// NewInvocation returns an invocation of subcommand with a fresh random ID.
func NewInvocation(subcommand string) *Invocation {
	return &Invocation{ID: uuid.NewString(), Subcommand: subcommand}
}

// Validate checks that the invocation names a subcommand and that its ID,
// if any, is a UUID.
func (i *Invocation) Validate() error {
	if i.Subcommand == "" {
		return errors.New("invocation subcommand is required")
	}
	if i.ID != "" {
		if _, err := uuid.Parse(i.ID); err != nil {
			return fmt.Errorf("invalid invocation id %q: %w", i.ID, err)
		}
	}
	return nil
}
