//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"sensorimotor/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "telemetry.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreTelemetryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	points := []model.TelemetryPoint{
		{Step: 0, Loss: 2.25, MetricError: 0.3, TopologyErrorInP: 0.2, TopologyErrorInH: 0.1, LearningRate: 1e-3},
		{Step: 1000, Loss: 1.125, MetricError: 0.25, TopologyErrorInP: 0.15, TopologyErrorInH: 0.08, LearningRate: 9.875e-4},
	}
	for _, p := range points {
		if err := s.AppendTelemetry(ctx, "run-1", p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, ok, err := s.GetTelemetry(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected run-1 to exist")
	}
	if len(got) != len(points) {
		t.Fatalf("got %d points, want %d", len(got), len(points))
	}
	for i := range points {
		if got[i] != points[i] {
			t.Fatalf("point %d: got %+v, want %+v", i, got[i], points[i])
		}
	}
}

func TestSQLiteStoreUnknownRun(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, ok, err := s.GetTelemetry(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unknown run")
	}
}

func TestSQLiteStoreListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for _, runID := range []string{"b", "a", "b"} {
		if err := s.AppendTelemetry(ctx, runID, model.TelemetryPoint{}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	want := []string{"a", "b"}
	if len(runs) != len(want) {
		t.Fatalf("got runs %v, want %v", runs, want)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("got runs %v, want %v", runs, want)
		}
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "telemetry.db"))
	if err := s.AppendTelemetry(context.Background(), "run", model.TelemetryPoint{}); err == nil {
		t.Fatal("expected append on uninitialized store to fail")
	}
}

func TestSQLiteStoreInitRequiresPath(t *testing.T) {
	s := NewSQLiteStore("")
	if err := s.Init(context.Background()); err == nil {
		t.Fatal("expected init without a path to fail")
	}
}
