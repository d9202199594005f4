package metrics

import (
	"testing"
	"time"

	"shelfguard/internal/model"
)

var base = time.Date(2025, 8, 13, 16, 0, 0, 0, time.UTC)

func TestRecordAggregates(t *testing.T) {
	s := NewStore(10)
	s.Record([]model.Detection{
		{Timestamp: base, Kind: model.KindLongQueue, StationID: "SCC1", RiskScore: 56},
		{Timestamp: base.Add(time.Minute), Kind: model.KindScannerAvoidance, StationID: "SCC1", RiskScore: 80},
	})
	stats, ok := s.Get("SCC1")
	if !ok {
		t.Fatalf("station missing")
	}
	if stats.Total != 2 || stats.MaxRisk != 80 || stats.AvgRisk != 68 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ByKind[string(model.KindLongQueue)] != 1 {
		t.Fatalf("kind tally missing: %+v", stats.ByKind)
	}
	if !stats.LastEvent.Equal(base.Add(time.Minute)) {
		t.Fatalf("last event wrong: %v", stats.LastEvent)
	}
}

func TestRecordUnassignedStation(t *testing.T) {
	s := NewStore(10)
	s.Record([]model.Detection{
		{Timestamp: base, Kind: model.KindInventoryGap, RiskScore: 70},
	})
	if _, ok := s.Get("unassigned"); !ok {
		t.Fatalf("station-less detections should land in the unassigned bucket")
	}
}

func TestEviction(t *testing.T) {
	s := NewStore(2)
	s.Record([]model.Detection{{Timestamp: base, Kind: model.KindLongQueue, StationID: "A", RiskScore: 1}})
	s.Record([]model.Detection{{Timestamp: base, Kind: model.KindLongQueue, StationID: "B", RiskScore: 1}})
	s.Record([]model.Detection{{Timestamp: base, Kind: model.KindLongQueue, StationID: "C", RiskScore: 1}})
	if len(s.GetAll()) != 2 {
		t.Fatalf("expected eviction down to limit, got %d", len(s.GetAll()))
	}
}
