// Package kpi keeps a history of planning run KPIs in SQLite. Only the run
// summary is stored; plans themselves are not persisted.
package kpi

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/metrics"
)

// SinkType is the metrics sink name of the store.
const SinkType = "sqlite"

// Config points at the database file.
type Config struct {
	Path string `json:"path"`
}

// SQLiteStore persists run KPIs in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kpi: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS induction_runs (
        run_id TEXT PRIMARY KEY,
        started INTEGER,
        engine TEXT,
        status TEXT,
        outcome TEXT,
        vehicles INTEGER,
        service INTEGER,
        standby INTEGER,
        maintenance INTEGER,
        ineligible INTEGER,
        objective INTEGER,
        bound REAL,
        nodes INTEGER,
        solve_ms INTEGER,
        duration_ms INTEGER
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// RecordRun implements metrics.Sink. A run recorded twice keeps the latest values.
func (s *SQLiteStore) RecordRun(ev metrics.RunEvent) error {
	_, err := s.db.Exec(`INSERT INTO induction_runs (run_id, started, engine, status, outcome,
            vehicles, service, standby, maintenance, ineligible, objective, bound, nodes, solve_ms, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            status = excluded.status,
            outcome = excluded.outcome,
            objective = excluded.objective,
            duration_ms = excluded.duration_ms`,
		ev.RunID, ev.Time.UnixMilli(), ev.Engine, ev.Status, ev.Outcome,
		ev.Vehicles, ev.Service, ev.Standby, ev.Maintenance, ev.Ineligible,
		ev.Objective, ev.Bound, ev.Nodes, ev.SolveTime.Milliseconds(), ev.Duration.Milliseconds())
	return err
}

// Query returns the runs started in [start,end], oldest first.
func (s *SQLiteStore) Query(ctx context.Context, start, end time.Time) ([]metrics.RunEvent, error) {
	return s.query(ctx, `WHERE started >= ? AND started <= ? ORDER BY started`, start.UnixMilli(), end.UnixMilli())
}

// Recent returns the last n runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]metrics.RunEvent, error) {
	return s.query(ctx, `ORDER BY started DESC LIMIT ?`, n)
}

func (s *SQLiteStore) query(ctx context.Context, clause string, args ...any) ([]metrics.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started, engine, status, outcome,
            vehicles, service, standby, maintenance, ineligible, objective, bound, nodes, solve_ms, duration_ms
        FROM induction_runs `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []metrics.RunEvent
	for rows.Next() {
		var ev metrics.RunEvent
		var started, solveMS, durMS int64
		if err := rows.Scan(&ev.RunID, &started, &ev.Engine, &ev.Status, &ev.Outcome,
			&ev.Vehicles, &ev.Service, &ev.Standby, &ev.Maintenance, &ev.Ineligible,
			&ev.Objective, &ev.Bound, &ev.Nodes, &solveMS, &durMS); err != nil {
			return nil, err
		}
		ev.Time = time.UnixMilli(started).UTC()
		ev.SolveTime = time.Duration(solveMS) * time.Millisecond
		ev.Duration = time.Duration(durMS) * time.Millisecond
		res = append(res, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func init() {
	_ = metrics.RegisterSink(SinkType, func(conf map[string]any) (metrics.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		s, err := NewSQLiteStore(c.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
