package services_test

import (
	"context"
	"testing"

	"clipcraft/internal/services"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "s1")
	ctx = services.WithOperation(ctx, "music")
	ctx = services.WithJobID(ctx, "task-1")
	ctx = services.WithRequestID(ctx, "req-1")

	if v, ok := services.SessionIDFromContext(ctx); !ok || v != "s1" {
		t.Fatalf("session id = %q, %v", v, ok)
	}
	if v, ok := services.OperationFromContext(ctx); !ok || v != "music" {
		t.Fatalf("operation = %q, %v", v, ok)
	}
	if v, ok := services.JobIDFromContext(ctx); !ok || v != "task-1" {
		t.Fatalf("job id = %q, %v", v, ok)
	}
	if v, ok := services.RequestIDFromContext(ctx); !ok || v != "req-1" {
		t.Fatalf("request id = %q, %v", v, ok)
	}
}

func TestContextHelpersIgnoreEmpty(t *testing.T) {
	ctx := services.WithSessionID(context.Background(), "")
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected empty session id to be ignored")
	}
}
