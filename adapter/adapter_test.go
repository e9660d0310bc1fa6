package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	prev := BackoffBase
	BackoffBase = time.Millisecond
	t.Cleanup(func() { BackoffBase = prev })
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	fastBackoff(t)

	calls := 0
	err := Retry(t.Context(), "test", 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_Exhausts(t *testing.T) {
	fastBackoff(t)

	calls := 0
	cause := errors.New("down")
	err := Retry(t.Context(), "test", 2, func(context.Context) error {
		calls++
		return cause
	}, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_PermanentStops(t *testing.T) {
	fastBackoff(t)

	calls := 0
	perm := errors.New("rejected")
	err := Retry(t.Context(), "test", 5, func(context.Context) error {
		calls++
		return perm
	}, func(err error) bool { return errors.Is(err, perm) })
	if !errors.Is(err, perm) {
		t.Fatalf("expected wrapped permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := Retry(ctx, "test", 3, func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("op must not run once the context is done")
	}
}
