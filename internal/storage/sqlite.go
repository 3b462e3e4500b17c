//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"sensorimotor/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) AppendTelemetry(ctx context.Context, runID string, point model.TelemetryPoint) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO telemetry (run_id, step, loss, metric_error, topology_error_in_p, topology_error_in_h, learning_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, point.Step, point.Loss, point.MetricError, point.TopologyErrorInP, point.TopologyErrorInH, point.LearningRate)
	return err
}

func (s *SQLiteStore) GetTelemetry(ctx context.Context, runID string) ([]model.TelemetryPoint, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT step, loss, metric_error, topology_error_in_p, topology_error_in_h, learning_rate
		FROM telemetry WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var points []model.TelemetryPoint
	for rows.Next() {
		var p model.TelemetryPoint
		if err := rows.Scan(&p.Step, &p.Loss, &p.MetricError, &p.TopologyErrorInP, &p.TopologyErrorInH, &p.LearningRate); err != nil {
			return nil, false, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(points) == 0 {
		return nil, false, nil
	}
	return points, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT run_id FROM telemetry ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]string, 0)
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			return nil, err
		}
		runs = append(runs, runID)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS telemetry (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			loss REAL NOT NULL,
			metric_error REAL NOT NULL,
			topology_error_in_p REAL NOT NULL,
			topology_error_in_h REAL NOT NULL,
			learning_rate REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS telemetry_run_idx ON telemetry (run_id, step);
	`)
	return err
}
