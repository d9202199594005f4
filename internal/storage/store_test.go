package storage

import (
	"context"
	"testing"
	"time"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
)

func TestNewStoreDisabled(t *testing.T) {
	store, err := NewStore(config.StorageConfig{Enabled: false})
	if err != nil || store != nil {
		t.Fatalf("disabled storage should be nil, got %v, %v", store, err)
	}
}

func TestNewStoreUnknownDriver(t *testing.T) {
	if _, err := NewStore(config.StorageConfig{Enabled: true, Driver: "etcd"}); err == nil {
		t.Fatalf("unknown driver should error")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	store, err := NewStore(config.StorageConfig{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     "file::memory:?cache=shared",
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	started := time.Date(2025, 8, 13, 16, 0, 0, 0, time.UTC)
	run := RunRecord{RunID: "run-1", Started: started, Finished: started.Add(time.Second), Detections: 1}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run failed: %v", err)
	}
	detections := []model.Detection{{
		Timestamp: started,
		Kind:      model.KindScannerAvoidance,
		StationID: "SCC1",
		RiskScore: 80,
		Severity:  model.SeverityMedium,
		Attrs:     map[string]any{"product_sku": "PRD_001"},
	}}
	if err := store.SaveDetections(ctx, "run-1", detections); err != nil {
		t.Fatalf("save detections failed: %v", err)
	}
}

func TestSaveDetectionsNoop(t *testing.T) {
	s := &sqliteStore{}
	if err := s.SaveDetections(context.Background(), "run-1", nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
	if err := s.SaveRun(context.Background(), RunRecord{}); err != nil {
		t.Fatalf("nil db should be a no-op, got %v", err)
	}
}
