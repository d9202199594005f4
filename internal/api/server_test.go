package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shelfguard/internal/alerts"
	"shelfguard/internal/config"
	"shelfguard/internal/metrics"
	"shelfguard/internal/model"
)

var base = time.Date(2025, 8, 13, 16, 0, 0, 0, time.UTC)

func testServer() *Server {
	s := &Server{
		cfg:     config.NewStaticManager(config.DefaultConfig()),
		metrics: metrics.NewStore(100),
		events:  alerts.NewStore(100),
		version: "test",
	}
	detections := []model.Detection{
		{Timestamp: base, Kind: model.KindScannerAvoidance, StationID: "SCC1", RiskScore: 80, Severity: model.SeverityMedium, Attrs: map[string]any{"product_sku": "PRD_001"}},
		{Timestamp: base.Add(time.Minute), Kind: model.KindLongQueue, StationID: "SCC2", RiskScore: 56, Severity: model.SeverityLow, Attrs: map[string]any{"num_of_customers": 6}},
	}
	s.events.AddAll(detections)
	s.metrics.Record(detections)
	return s
}

func TestHandleStatus(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Fatalf("unexpected status body: %+v", resp)
	}
	if resp.Events.Stored != 2 {
		t.Fatalf("expected 2 stored events, got %d", resp.Events.Stored)
	}
}

func TestHandleEvents(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Count  int `json:"count"`
		Events []struct {
			EventID string `json:"event_id"`
		} `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Count != 2 || resp.Events[0].EventID != "E001" {
		t.Fatalf("unexpected events body: %+v", resp)
	}
}

func TestHandleEventsSeverityFilter(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/events?severity=medium", nil))
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 medium event, got %d", resp.Count)
	}
}

func TestHandleEventsBadSince(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/events?since=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSummary(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleSummary(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	var resp struct {
		TotalEvents int `json:"total_events"`
		FraudEvents int `json:"fraud_events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.TotalEvents != 2 || resp.FraudEvents != 1 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
}

func TestHandleStations(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleStations(rec, httptest.NewRequest(http.MethodGet, "/stations/SCC1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	s.handleStations(rec, httptest.NewRequest(http.MethodGet, "/stations/NOPE", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleRulesUpdate(t *testing.T) {
	s := testServer()
	body := strings.NewReader(`{"queue_length_threshold": 9}`)
	rec := httptest.NewRecorder()
	s.handleRules(rec, httptest.NewRequest(http.MethodPost, "/config/rules", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.cfg.Get().Rules.QueueLengthThreshold != 9 {
		t.Fatalf("threshold not applied")
	}
	// Other thresholds untouched.
	if s.cfg.Get().Rules.WeightTolerancePercent != 15 {
		t.Fatalf("unrelated threshold changed")
	}
}

func TestHandleRulesRejectsInvalid(t *testing.T) {
	s := testServer()
	body := strings.NewReader(`{"fraud_severity": {"high": 40, "medium": 60}}`)
	rec := httptest.NewRecorder()
	s.handleRules(rec, httptest.NewRequest(http.MethodPost, "/config/rules", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleClear(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleClear(rec, httptest.NewRequest(http.MethodPost, "/admin/clear", strings.NewReader(`{"target":"events"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(s.events.List(0)) != 0 {
		t.Fatalf("events should be cleared")
	}
	if len(s.metrics.GetAll()) == 0 {
		t.Fatalf("metrics should be untouched")
	}
}

func TestHandleRunWithoutEngine(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleRun(rec, httptest.NewRequest(http.MethodPost, "/admin/run", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
