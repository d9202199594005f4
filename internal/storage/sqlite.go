package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"shelfguard/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:shelfguard.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			detections INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			kind TEXT NOT NULL,
			station_id TEXT,
			risk_score REAL NOT NULL,
			severity TEXT NOT NULL,
			attrs_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_ts ON detections(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_run ON detections(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveRun(ctx context.Context, run RunRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started, finished, detections) VALUES (?, ?, ?, ?)`,
		run.RunID,
		run.Started.UTC(),
		run.Finished.UTC(),
		run.Detections,
	)
	return err
}

func (s *sqliteStore) SaveDetections(ctx context.Context, runID string, detections []model.Detection) error {
	if s.db == nil || runID == "" || len(detections) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO detections (run_id, ts, kind, station_id, risk_score, severity, attrs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, det := range detections {
		if _, err := stmt.ExecContext(ctx,
			runID,
			det.Timestamp.UTC(),
			string(det.Kind),
			det.StationID,
			det.RiskScore,
			string(det.Severity),
			encodeJSON(det.Attrs),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
