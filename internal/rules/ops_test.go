package rules

import (
	"testing"
	"time"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
)

func queueRec(ts time.Time, station string, count int, dwell float64, seq int64) model.Record {
	return model.Record{
		Seq:       seq,
		Timestamp: ts,
		StationID: station,
		Source:    model.SourceQueue,
		Queue:     &model.QueueData{CustomerCount: count, AverageDwellTime: dwell},
	}
}

func TestLongQueueThreshold(t *testing.T) {
	s := testSet()
	if out := s.LongQueues([]model.Record{queueRec(base, "SCC1", 5, 100, 1)}); len(out) != 0 {
		t.Fatalf("count at threshold should not trigger, got %d", len(out))
	}
	out := s.LongQueues([]model.Record{queueRec(base, "SCC1", 6, 100, 1)})
	if len(out) != 1 {
		t.Fatalf("count above threshold should trigger, got %d", len(out))
	}
	if out[0].RiskScore != 56 {
		t.Fatalf("expected 48+8=56, got %v", out[0].RiskScore)
	}
	if out[0].Attrs["num_of_customers"] != 6 {
		t.Fatalf("missing customer count attr: %+v", out[0].Attrs)
	}
}

func TestLongQueueCap(t *testing.T) {
	s := testSet()
	out := s.LongQueues([]model.Record{queueRec(base, "SCC1", 50, 100, 1)})
	if len(out) != 1 || out[0].RiskScore != 92 {
		t.Fatalf("expected capped score 92, got %+v", out)
	}
}

func TestLongWait(t *testing.T) {
	s := testSet()
	if out := s.LongWaits([]model.Record{queueRec(base, "SCC1", 2, 300, 1)}); len(out) != 0 {
		t.Fatalf("dwell at threshold should not trigger, got %d", len(out))
	}
	out := s.LongWaits([]model.Record{queueRec(base, "SCC1", 2, 400, 1)})
	if len(out) != 1 {
		t.Fatalf("dwell above threshold should trigger, got %d", len(out))
	}
	det := out[0]
	// 45 + (100/60)*15 + 2*3
	if det.RiskScore < 45 || det.RiskScore > 90 {
		t.Fatalf("score out of range: %v", det.RiskScore)
	}
	if det.Attrs["wait_time_seconds"] != 400.0 {
		t.Fatalf("missing wait attr: %+v", det.Attrs)
	}
}

func TestLongWaitCap(t *testing.T) {
	s := testSet()
	out := s.LongWaits([]model.Record{queueRec(base, "SCC1", 30, 10000, 1)})
	if len(out) != 1 || out[0].RiskScore != 90 {
		t.Fatalf("expected capped score 90, got %+v", out)
	}
}

func TestStaffingNeedsTriggers(t *testing.T) {
	s := testSet()
	// Both thresholds breached.
	if out := s.StaffingNeeds([]model.Record{queueRec(base, "SCC1", 6, 400, 1)}); len(out) != 1 {
		t.Fatalf("combined breach should trigger, got %d", len(out))
	}
	// Severe queue alone: 8 > 5*1.5.
	if out := s.StaffingNeeds([]model.Record{queueRec(base, "SCC1", 8, 10, 1)}); len(out) != 1 {
		t.Fatalf("severe queue alone should trigger, got %d", len(out))
	}
	// Long queue but fast service, not severe.
	if out := s.StaffingNeeds([]model.Record{queueRec(base, "SCC1", 6, 10, 1)}); len(out) != 0 {
		t.Fatalf("moderate queue with fast service should not trigger, got %d", len(out))
	}
}

func TestStaffingNeedsAttrs(t *testing.T) {
	s := testSet()
	out := s.StaffingNeeds([]model.Record{queueRec(base, "SCC1", 6, 400, 1)})
	if len(out) != 1 {
		t.Fatalf("expected one detection, got %d", len(out))
	}
	if out[0].Attrs["staff_type"] != "Cashier" {
		t.Fatalf("missing staff_type attr: %+v", out[0].Attrs)
	}
	if out[0].RiskScore > 96 {
		t.Fatalf("score above cap: %v", out[0].RiskScore)
	}
}

func TestSystemCrashSessions(t *testing.T) {
	s := testSet()
	records := []model.Record{
		{Seq: 1, Timestamp: base, StationID: "SCC1", Source: model.SourcePOS, Status: model.StatusCrash},
		{Seq: 2, Timestamp: base.Add(30 * time.Second), StationID: "SCC1", Source: model.SourcePOS, Status: model.StatusCrash},
		{Seq: 3, Timestamp: base.Add(time.Minute), StationID: "SCC2", Source: model.SourceRFID, Status: model.StatusReadError},
	}
	out := s.SystemCrashes(records)
	if len(out) != 2 {
		t.Fatalf("expected one detection per session, got %d", len(out))
	}
	first := out[0]
	if first.StationID != "SCC1" || first.Attrs["crash_count"] != 2 {
		t.Fatalf("unexpected first session: %+v", first)
	}
	if first.RiskScore < 75 {
		t.Fatalf("crash score below base: %v", first.RiskScore)
	}
	if first.Attrs["duration_seconds"] != 30 {
		t.Fatalf("expected 30s duration, got %v", first.Attrs["duration_seconds"])
	}
}

func TestSystemCrashGapConfig(t *testing.T) {
	cfg := config.DefaultConfig().Rules
	cfg.CrashSessionMaxGap = time.Minute
	s := New(cfg, testCatalog())
	records := []model.Record{
		{Seq: 1, Timestamp: base, StationID: "SCC1", Source: model.SourcePOS, Status: model.StatusCrash},
		{Seq: 2, Timestamp: base.Add(10 * time.Minute), StationID: "SCC1", Source: model.SourcePOS, Status: model.StatusCrash},
	}
	if out := s.SystemCrashes(records); len(out) != 2 {
		t.Fatalf("gap beyond max should split sessions, got %d", len(out))
	}
}
