package storage

import (
	"context"

	"sensorimotor/internal/model"
)

// Store persists the append-only telemetry stream produced during training.
// Telemetry is keyed by run identifier and global step; appends must never
// rewrite earlier entries.
type Store interface {
	Init(ctx context.Context) error
	AppendTelemetry(ctx context.Context, runID string, point model.TelemetryPoint) error
	GetTelemetry(ctx context.Context, runID string) ([]model.TelemetryPoint, bool, error)
	ListRuns(ctx context.Context) ([]string, error)
}

// CloseIfSupported closes backends that hold external resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
