package services_test

import (
	"context"
	"testing"

	"snapship/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithFilePath(ctx, "/watch/photo.jpg")
	ctx = services.WithRequestID(ctx, "req-123")

	if path, ok := services.FilePathFromContext(ctx); !ok || path != "/watch/photo.jpg" {
		t.Fatalf("unexpected file path: %v %v", path, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithFilePath(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.FilePathFromContext(ctx); ok {
		t.Fatal("expected no file path value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
}
