package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	Ingest      IngestConfig      `json:"ingest" yaml:"ingest"`
	Rules       RulesConfig       `json:"rules" yaml:"rules"`
	Aggregation AggregationConfig `json:"aggregation" yaml:"aggregation"`
	API         APIConfig         `json:"api" yaml:"api"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics"`
	Detections  DetectionsConfig  `json:"detections" yaml:"detections"`
}

type IngestConfig struct {
	DataDir       string       `json:"data_dir" yaml:"data_dir"`
	Files         FilesConfig  `json:"files" yaml:"files"`
	ChannelBuffer int          `json:"channel_buffer" yaml:"channel_buffer"`
	Stream        StreamConfig `json:"stream" yaml:"stream"`
	Kafka         KafkaConfig  `json:"kafka" yaml:"kafka"`
}

type FilesConfig struct {
	POS       string `json:"pos" yaml:"pos"`
	RFID      string `json:"rfid" yaml:"rfid"`
	Vision    string `json:"vision" yaml:"vision"`
	Queue     string `json:"queue" yaml:"queue"`
	Inventory string `json:"inventory" yaml:"inventory"`
	Products  string `json:"products" yaml:"products"`
	Customers string `json:"customers" yaml:"customers"`
}

type StreamConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	Limit   int    `json:"limit" yaml:"limit"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type RulesConfig struct {
	RFIDPOSWindowSec          int           `json:"rfid_pos_window_sec" yaml:"rfid_pos_window_sec"`
	WeightTolerancePercent    float64       `json:"weight_tolerance_percent" yaml:"weight_tolerance_percent"`
	RecognitionConfidence     float64       `json:"recognition_confidence" yaml:"recognition_confidence"`
	QueueLengthThreshold      int           `json:"queue_length_threshold" yaml:"queue_length_threshold"`
	WaitTimeThresholdSec      float64       `json:"wait_time_threshold_sec" yaml:"wait_time_threshold_sec"`
	InventoryThresholdPercent float64       `json:"inventory_threshold_percent" yaml:"inventory_threshold_percent"`
	CrashSessionMaxGap        time.Duration `json:"crash_session_max_gap" yaml:"crash_session_max_gap"`
	FraudSeverity             LadderConfig  `json:"fraud_severity" yaml:"fraud_severity"`
	OpsSeverity               LadderConfig  `json:"ops_severity" yaml:"ops_severity"`
}

type LadderConfig struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

type AggregationConfig struct {
	HighRiskMinEvents        int     `json:"high_risk_min_events" yaml:"high_risk_min_events"`
	HighRiskMinScore         float64 `json:"high_risk_min_score" yaml:"high_risk_min_score"`
	StationWaitThresholdSec  float64 `json:"station_wait_threshold_sec" yaml:"station_wait_threshold_sec"`
	StationAlertOccurrences  int     `json:"station_alert_occurrences" yaml:"station_alert_occurrences"`
	StationAlertWindowMinute int     `json:"station_alert_window_minutes" yaml:"station_alert_window_minutes"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type MetricsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type DetectionsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Ingest: IngestConfig{
			DataDir:       "data",
			ChannelBuffer: 10000,
			Files: FilesConfig{
				POS:       "pos_transactions.jsonl",
				RFID:      "rfid_readings.jsonl",
				Vision:    "product_recognition.jsonl",
				Queue:     "queue_monitoring.jsonl",
				Inventory: "inventory_snapshots.jsonl",
				Products:  "products_list.csv",
				Customers: "customer_data.csv",
			},
			Stream: StreamConfig{Enabled: false, Addr: "127.0.0.1:8765"},
			Kafka:  KafkaConfig{Enabled: false},
		},
		Rules: RulesConfig{
			RFIDPOSWindowSec:          10,
			WeightTolerancePercent:    15,
			RecognitionConfidence:     0.75,
			QueueLengthThreshold:      5,
			WaitTimeThresholdSec:      300,
			InventoryThresholdPercent: 10,
			CrashSessionMaxGap:        0,
			FraudSeverity:             LadderConfig{High: 85, Medium: 60},
			OpsSeverity:               LadderConfig{High: 80, Medium: 55},
		},
		Aggregation: AggregationConfig{
			HighRiskMinEvents:        2,
			HighRiskMinScore:         80,
			StationWaitThresholdSec:  300,
			StationAlertOccurrences:  3,
			StationAlertWindowMinute: 15,
		},
		API:        APIConfig{Enabled: true, Addr: ":8081"},
		Storage:    StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:shelfguard.db?_pragma=busy_timeout(5000)"},
		Metrics:    MetricsConfig{StoreLimit: 5000},
		Detections: DetectionsConfig{StoreLimit: 5000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = def.Ingest.ChannelBuffer
	}
	if cfg.Ingest.Files.POS == "" {
		cfg.Ingest.Files = def.Ingest.Files
	}
	if cfg.Rules.RFIDPOSWindowSec <= 0 {
		cfg.Rules.RFIDPOSWindowSec = def.Rules.RFIDPOSWindowSec
	}
	if cfg.Rules.FraudSeverity == (LadderConfig{}) {
		cfg.Rules.FraudSeverity = def.Rules.FraudSeverity
	}
	if cfg.Rules.OpsSeverity == (LadderConfig{}) {
		cfg.Rules.OpsSeverity = def.Rules.OpsSeverity
	}
	if cfg.Metrics.StoreLimit <= 0 {
		cfg.Metrics.StoreLimit = def.Metrics.StoreLimit
	}
	if cfg.Detections.StoreLimit <= 0 {
		cfg.Detections.StoreLimit = def.Detections.StoreLimit
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.Stream.Enabled && cfg.Ingest.Stream.Addr == "" {
		return errors.New("ingest.stream.addr required when ingest.stream.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if cfg.Rules.WeightTolerancePercent <= 0 {
		return errors.New("rules.weight_tolerance_percent must be > 0")
	}
	if cfg.Rules.RecognitionConfidence <= 0 || cfg.Rules.RecognitionConfidence > 1 {
		return errors.New("rules.recognition_confidence must be in (0, 1]")
	}
	if cfg.Rules.InventoryThresholdPercent <= 0 {
		return errors.New("rules.inventory_threshold_percent must be > 0")
	}
	if cfg.Rules.CrashSessionMaxGap < 0 {
		return errors.New("rules.crash_session_max_gap must be >= 0")
	}
	for name, ladder := range map[string]LadderConfig{
		"rules.fraud_severity": cfg.Rules.FraudSeverity,
		"rules.ops_severity":   cfg.Rules.OpsSeverity,
	} {
		if ladder.High < ladder.Medium {
			return fmt.Errorf("%s breakpoints are not monotonic: high %.1f < medium %.1f", name, ladder.High, ladder.Medium)
		}
	}
	if cfg.Aggregation.HighRiskMinEvents <= 0 {
		return errors.New("aggregation.high_risk_min_events must be > 0")
	}
	if cfg.Aggregation.StationAlertOccurrences <= 0 {
		return errors.New("aggregation.station_alert_occurrences must be > 0")
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	if info, err := os.Stat(path); err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an already built config, for one-shot runs that
// have no file to watch.
func NewStaticManager(cfg *Config) *Manager {
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

// Update swaps in a new config and, when the manager is file-backed,
// writes it through so a later reload sees the same values.
func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	m.cfg.Store(cfg)
	if m.path == "" {
		return nil
	}
	if err := Save(m.path, cfg); err != nil {
		return err
	}
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return nil
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
