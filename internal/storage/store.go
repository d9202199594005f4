package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
)

// RunRecord summarizes one completed correlation pass.
type RunRecord struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Detections int
}

type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveRun(ctx context.Context, run RunRecord) error
	SaveDetections(ctx context.Context, runID string, detections []model.Detection) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
