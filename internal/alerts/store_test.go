package alerts

import (
	"testing"
	"time"

	"shelfguard/internal/model"
)

var base = time.Date(2025, 8, 13, 16, 0, 0, 0, time.UTC)

func det(ts time.Time, station string, severity model.Severity) model.Detection {
	return model.Detection{
		Timestamp: ts,
		Kind:      model.KindLongQueue,
		StationID: station,
		RiskScore: 56,
		Severity:  severity,
	}
}

func TestRingBufferEviction(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Add(det(base.Add(time.Duration(i)*time.Second), "SCC1", model.SeverityLow))
	}
	list := s.List(0)
	if len(list) != 3 {
		t.Fatalf("expected 3 retained, got %d", len(list))
	}
	if !list[0].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("oldest entries should be evicted first, got %v", list[0].Timestamp)
	}
}

func TestListLimit(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 5; i++ {
		s.Add(det(base.Add(time.Duration(i)*time.Second), "SCC1", model.SeverityLow))
	}
	list := s.List(2)
	if len(list) != 2 {
		t.Fatalf("expected 2, got %d", len(list))
	}
	if !list[1].Timestamp.Equal(base.Add(4 * time.Second)) {
		t.Fatalf("limit should keep the newest entries")
	}
}

func TestSince(t *testing.T) {
	s := NewStore(10)
	s.Add(det(base, "SCC1", model.SeverityLow))
	s.Add(det(base.Add(time.Minute), "SCC1", model.SeverityLow))
	list := s.Since(base.Add(30 * time.Second))
	if len(list) != 1 {
		t.Fatalf("expected 1, got %d", len(list))
	}
}

func TestBySeverity(t *testing.T) {
	s := NewStore(10)
	s.Add(det(base, "SCC1", model.SeverityLow))
	s.Add(det(base, "SCC1", model.SeverityHigh))
	if got := s.BySeverity(model.SeverityHigh); len(got) != 1 {
		t.Fatalf("expected 1 high, got %d", len(got))
	}
}

func TestClear(t *testing.T) {
	s := NewStore(10)
	s.Add(det(base, "SCC1", model.SeverityLow))
	s.Clear()
	if len(s.List(0)) != 0 {
		t.Fatalf("clear should empty the store")
	}
}
