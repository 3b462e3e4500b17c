package storage

import (
	"context"
	"testing"

	"sensorimotor/internal/model"
)

func TestMemoryStoreTelemetryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	points := []model.TelemetryPoint{
		{Step: 0, Loss: 1.5, MetricError: 0.2, TopologyErrorInP: 0.1, TopologyErrorInH: 0.05, LearningRate: 1e-3},
		{Step: 1000, Loss: 0.7, MetricError: 0.15, TopologyErrorInP: 0.08, TopologyErrorInH: 0.04, LearningRate: 9e-4},
	}
	for _, p := range points {
		if err := s.AppendTelemetry(ctx, "run-a", p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, ok, err := s.GetTelemetry(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected run-a to exist")
	}
	if len(got) != len(points) {
		t.Fatalf("got %d points, want %d", len(got), len(points))
	}
	for i := range points {
		if got[i] != points[i] {
			t.Fatalf("point %d: got %+v, want %+v", i, got[i], points[i])
		}
	}

	// The returned slice is a copy; mutating it must not reach the store.
	got[0].Loss = -1
	again, _, err := s.GetTelemetry(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again[0].Loss != points[0].Loss {
		t.Fatalf("store telemetry was mutated through a returned slice")
	}
}

func TestMemoryStoreInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	point := model.TelemetryPoint{Step: 1000, Loss: 0.5}
	if err := s.AppendTelemetry(ctx, "run-a", point); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Reads re-init the store; appended telemetry must survive that.
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}

	got, ok, err := s.GetTelemetry(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || len(got) != 1 || got[0] != point {
		t.Fatalf("telemetry lost after re-init: ok=%v points=%v", ok, got)
	}
}

func TestMemoryStoreUnknownRun(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, ok, err := s.GetTelemetry(ctx, "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unknown run")
	}
}

func TestMemoryStoreListRunsSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, runID := range []string{"zeta", "alpha", "mid"} {
		if err := s.AppendTelemetry(ctx, runID, model.TelemetryPoint{}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(runs) != len(want) {
		t.Fatalf("got %d runs, want %d", len(runs), len(want))
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("runs[%d]: got %q, want %q", i, runs[i], want[i])
		}
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.AppendTelemetry(ctx, "run", model.TelemetryPoint{}); err == nil {
		t.Fatal("expected append on uninitialized store to fail")
	}
	if _, _, err := s.GetTelemetry(ctx, "run"); err == nil {
		t.Fatal("expected get on uninitialized store to fail")
	}
	if _, err := s.ListRuns(ctx); err == nil {
		t.Fatal("expected list on uninitialized store to fail")
	}
}
