package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestDetachKeepsRequestIDOnly(t *testing.T) {
	parent, cancel := context.WithTimeout(WithRequestID(context.Background(), "req-9"), time.Minute)
	cancel()

	ctx := Detach(parent)
	if ctx.Err() != nil {
		t.Fatalf("detached context inherited cancellation: %v", ctx.Err())
	}
	if got := RequestID(ctx); got != "req-9" {
		t.Fatalf("expected req-9, got %q", got)
	}
	if RequestID(Detach(context.Background())) != "" {
		t.Fatalf("expected no request id")
	}
	if WithRequestID(parent, "") != parent {
		t.Fatalf("empty id should return ctx unchanged")
	}
}
