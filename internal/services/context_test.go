package services_test

import (
	"context"
	"testing"

	"chronicle/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithClipID(ctx, "clip_001")
	ctx = services.WithAnalyzer(ctx, "scene")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.ClipIDFromContext(ctx); !ok || id != "clip_001" {
		t.Fatalf("unexpected clip id: %v %v", id, ok)
	}
	if name, ok := services.AnalyzerFromContext(ctx); !ok || name != "scene" {
		t.Fatalf("unexpected analyzer: %v %v", name, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithClipID(ctx, "")
	ctx = services.WithAnalyzer(ctx, "")
	if _, ok := services.ClipIDFromContext(ctx); ok {
		t.Fatal("expected no clip value")
	}
	if _, ok := services.AnalyzerFromContext(ctx); ok {
		t.Fatal("expected no analyzer value")
	}
}
