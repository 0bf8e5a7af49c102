package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUpstreamTreatsStoreTimeoutAsUnavailable(t *testing.T) {
	err := Upstream("query", fmt.Errorf("Client.Timeout exceeded: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream kind for a store timeout, got %v", err)
	}
	if errors.Is(err, ErrCancelled) {
		t.Fatalf("store timeout must not look cancelled")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause to be preserved, got %v", err)
	}
}

func TestCancelledUsesContextCause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Cancelled("query", ctx)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled with context cause, got %v", err)
	}
}

func TestUpstreamWrapsStoreFailures(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("query", cause)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream kind, got %v", err)
	}
	if errors.Is(err, ErrCancelled) {
		t.Fatalf("store failure must not look cancelled")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
}

func TestUpstreamKeepsClassifiedErrors(t *testing.T) {
	inner := InvalidArgument("store", "bad table")
	if got := Upstream("query", inner); got != inner {
		t.Fatalf("expected classified error to pass through, got %v", got)
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := InvalidArgument("GetHealth", "website_id is required")
	if err.Error() != "GetHealth: invalid argument: website_id is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
