package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"sensorimotor/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	telemetry   map[string][]model.TelemetryPoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.telemetry = make(map[string][]model.TelemetryPoint)
	return nil
}

func (s *MemoryStore) AppendTelemetry(_ context.Context, runID string, point model.TelemetryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.telemetry[runID] = append(s.telemetry[runID], point)
	return nil
}

func (s *MemoryStore) GetTelemetry(_ context.Context, runID string) ([]model.TelemetryPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errors.New("store is not initialized")
	}
	points, ok := s.telemetry[runID]
	if !ok {
		return nil, false, nil
	}
	out := make([]model.TelemetryPoint, len(points))
	copy(out, points)
	return out, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}
	runs := make([]string, 0, len(s.telemetry))
	for runID := range s.telemetry {
		runs = append(runs, runID)
	}
	sort.Strings(runs)
	return runs, nil
}
