package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"shelfguard/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/shelfguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id UUID PRIMARY KEY,
			started TIMESTAMPTZ NOT NULL,
			finished TIMESTAMPTZ NOT NULL,
			detections INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL,
			station_id TEXT,
			risk_score DOUBLE PRECISION NOT NULL,
			severity TEXT NOT NULL,
			attrs_json JSONB
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

func (s *postgresStore) SaveRun(ctx context.Context, run RunRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started, finished, detections) VALUES ($1, $2, $3, $4)`,
		run.RunID,
		run.Started.UTC(),
		run.Finished.UTC(),
		run.Detections,
	)
	return err
}

func (s *postgresStore) SaveDetections(ctx context.Context, runID string, detections []model.Detection) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
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
