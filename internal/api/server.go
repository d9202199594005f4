// Package api serves the dashboard and admin surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shelfguard/internal/alerts"
	"shelfguard/internal/config"
	"shelfguard/internal/engine"
	"shelfguard/internal/metrics"
	"shelfguard/internal/model"
	"shelfguard/internal/report"
)

// EngineControl is what the admin endpoints need from the engine: apply a
// config change, wipe derived state, and trigger a pass over the data
// accumulated so far.
type EngineControl interface {
	Reset()
	UpdateConfig(cfg *config.Config)
	RunNow(ctx context.Context) (*engine.PassResult, error)
}

type Server struct {
	cfg     *config.Manager
	metrics *metrics.Store
	events  *alerts.Store
	engine  EngineControl
	logger  *slog.Logger
	version string
}

type statusResponse struct {
	Status     string       `json:"status"`
	Time       string       `json:"time"`
	Version    string       `json:"version"`
	ConfigPath string       `json:"config_path"`
	Rules      rulesStatus  `json:"rules"`
	Ingest     ingestStatus `json:"ingest"`
	API        apiStatus    `json:"api"`
	Events     eventsStatus `json:"events"`
}

type rulesStatus struct {
	CorrelationWindowSec      int     `json:"correlation_window_sec"`
	WeightTolerancePercent    float64 `json:"weight_tolerance_percent"`
	RecognitionConfidence     float64 `json:"recognition_confidence"`
	QueueLengthThreshold      int     `json:"queue_length_threshold"`
	WaitTimeThresholdSec      float64 `json:"wait_time_threshold_sec"`
	InventoryThresholdPercent float64 `json:"inventory_threshold_percent"`
}

type ingestStatus struct {
	TCPStream bool `json:"tcp_stream"`
	Kafka     bool `json:"kafka"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type eventsStatus struct {
	Stored int `json:"stored"`
}

func Start(ctx context.Context, cfg *config.Manager, metricsStore *metrics.Store, eventsStore *alerts.Store, engineCtl EngineControl, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:     cfg,
		metrics: metricsStore,
		events:  eventsStore,
		engine:  engineCtl,
		logger:  logger,
		version: version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/events", server.handleEvents)
	mux.HandleFunc("/summary", server.handleSummary)
	mux.HandleFunc("/stations", server.handleStations)
	mux.HandleFunc("/stations/", server.handleStations)
	mux.HandleFunc("/config/rules", server.handleRules)
	mux.HandleFunc("/admin/clear", server.handleClear)
	mux.HandleFunc("/admin/run", server.handleRun)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	stored := 0
	if s.events != nil {
		stored = len(s.events.List(0))
	}
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Rules: rulesStatus{
			CorrelationWindowSec:      cfg.Rules.RFIDPOSWindowSec,
			WeightTolerancePercent:    cfg.Rules.WeightTolerancePercent,
			RecognitionConfidence:     cfg.Rules.RecognitionConfidence,
			QueueLengthThreshold:      cfg.Rules.QueueLengthThreshold,
			WaitTimeThresholdSec:      cfg.Rules.WaitTimeThresholdSec,
			InventoryThresholdPercent: cfg.Rules.InventoryThresholdPercent,
		},
		Ingest: ingestStatus{
			TCPStream: cfg.Ingest.Stream.Enabled,
			Kafka:     cfg.Ingest.Kafka.Enabled,
		},
		API:    apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		Events: eventsStatus{Stored: stored},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var list []model.Detection
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.events.Since(ts)
	} else if sev := r.URL.Query().Get("severity"); sev != "" {
		list = s.events.BySeverity(model.Severity(strings.ToUpper(sev)))
	} else {
		list = s.events.List(limit)
	}
	wire := make([]report.WireEvent, 0, len(list))
	for _, det := range list {
		wire = append(wire, report.Format(det))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": wire,
		"count":  len(wire),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(s.events.List(0)))
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/stations")
	path = strings.TrimPrefix(path, "/")
	if path != "" {
		stats, ok := s.metrics.Get(path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}
	all := s.metrics.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"stations": all,
		"count":    len(all),
	})
}

// handleRules exposes the detection thresholds for live tuning. A POST
// replaces the rules block, re-validates the whole config, persists it,
// and pushes it to the engine.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"rules": s.cfg.Get().Rules,
		})
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		current := s.cfg.Get()
		next := *current
		rules := current.Rules
		if err := json.Unmarshal(body, &rules); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		next.Rules = rules
		if err := config.Validate(&next); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if err := s.cfg.Update(&next); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if s.engine != nil {
			s.engine.UpdateConfig(&next)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &req)
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		if s.engine != nil {
			s.engine.Reset()
		} else {
			if s.metrics != nil {
				s.metrics.Clear()
			}
			if s.events != nil {
				s.events.Clear()
			}
		}
	case "events":
		if s.events != nil {
			s.events.Clear()
		}
	case "stations", "metrics":
		if s.metrics != nil {
			s.metrics.Clear()
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	result, err := s.engine.RunNow(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     result.RunID,
		"detections": len(result.Detections),
		"counts":     result.Counts,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
