package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsInvertedLadder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.FraudSeverity = LadderConfig{High: 50, Medium: 60}
	if err := Validate(cfg); err == nil {
		t.Fatalf("inverted severity ladder should be rejected")
	}
}

func TestValidateRejectsBadConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.RecognitionConfidence = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatalf("confidence above 1 should be rejected")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
rules:
  queue_length_threshold: 7
  weight_tolerance_percent: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
	}
	if cfg.Rules.QueueLengthThreshold != 7 {
		t.Fatalf("expected threshold 7, got %d", cfg.Rules.QueueLengthThreshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Rules.RFIDPOSWindowSec != 10 {
		t.Fatalf("expected default window 10, got %d", cfg.Rules.RFIDPOSWindowSec)
	}
	if cfg.Rules.FraudSeverity.High != 85 {
		t.Fatalf("expected default fraud ladder, got %+v", cfg.Rules.FraudSeverity)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"rules": {"inventory_threshold_percent": 25}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Rules.InventoryThresholdPercent != 25 {
		t.Fatalf("expected 25, got %v", cfg.Rules.InventoryThresholdPercent)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
rules:
  fraud_severity:
    high: 40
    medium: 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("invalid ladder should fail load")
	}
}

func TestManagerUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	next := *m.Get()
	next.Rules.QueueLengthThreshold = 9
	if err := m.Update(&next); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if m.Get().Rules.QueueLengthThreshold != 9 {
		t.Fatalf("update not visible")
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Rules.QueueLengthThreshold != 9 {
		t.Fatalf("update not written through")
	}
}

func TestManagerUpdateRejectsInvalid(t *testing.T) {
	m := NewStaticManager(DefaultConfig())
	next := *m.Get()
	next.Rules.OpsSeverity = LadderConfig{High: 10, Medium: 60}
	if err := m.Update(&next); err == nil {
		t.Fatalf("invalid config should be rejected")
	}
}

func TestStaticManager(t *testing.T) {
	cfg := DefaultConfig()
	m := NewStaticManager(cfg)
	if m.Get() != cfg {
		t.Fatalf("static manager should return the wrapped config")
	}
	if m.Path() != "" {
		t.Fatalf("static manager has no path")
	}
	if needs, err := m.NeedsReload(); err != nil || needs {
		t.Fatalf("static manager never needs reload")
	}
}
