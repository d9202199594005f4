package correlate

import (
	"testing"
	"time"

	"shelfguard/internal/model"
)

var base = time.Date(2025, 8, 13, 16, 0, 0, 0, time.UTC)

func posRec(ts time.Time, station, sku string, seq int64) model.Record {
	return model.Record{
		Seq:       seq,
		Timestamp: ts,
		StationID: station,
		Source:    model.SourcePOS,
		POS:       &model.POSData{SKU: sku},
	}
}

func TestWindowBoundaryInclusive(t *testing.T) {
	ix := NewIndex([]model.Record{posRec(base.Add(10*time.Second), "SCC1", "PRD_001", 1)})
	if _, ok := ix.Window(base, "SCC1", 10, MatchPOSSKU("PRD_001")); !ok {
		t.Fatalf("record at exactly +window should match")
	}
	ix = NewIndex([]model.Record{posRec(base.Add(11*time.Second), "SCC1", "PRD_001", 1)})
	if _, ok := ix.Window(base, "SCC1", 10, MatchPOSSKU("PRD_001")); ok {
		t.Fatalf("record beyond +window should not match")
	}
}

func TestWindowPrefersSmallerOffset(t *testing.T) {
	ix := NewIndex([]model.Record{
		posRec(base.Add(-2*time.Second), "SCC1", "PRD_001", 1),
		posRec(base.Add(1*time.Second), "SCC1", "PRD_001", 2),
	})
	rec, ok := ix.Window(base, "SCC1", 10, MatchPOSSKU("PRD_001"))
	if !ok || rec.Seq != 2 {
		t.Fatalf("expected the offset-1 record, got seq %d", rec.Seq)
	}
}

func TestWindowPrefersEarlierAtEqualDistance(t *testing.T) {
	ix := NewIndex([]model.Record{
		posRec(base.Add(2*time.Second), "SCC1", "PRD_001", 1),
		posRec(base.Add(-2*time.Second), "SCC1", "PRD_001", 2),
	})
	rec, ok := ix.Window(base, "SCC1", 10, MatchPOSSKU("PRD_001"))
	if !ok || rec.Seq != 2 {
		t.Fatalf("expected the earlier record at equal distance, got seq %d", rec.Seq)
	}
}

func TestExactSeqTieBreak(t *testing.T) {
	ix := NewIndex([]model.Record{
		posRec(base, "SCC1", "PRD_001", 9),
		posRec(base, "SCC1", "PRD_001", 3),
	})
	rec, ok := ix.Exact(base, "SCC1", nil)
	if !ok || rec.Seq != 3 {
		t.Fatalf("expected lowest-seq record, got seq %d", rec.Seq)
	}
}

func TestWindowIsolatesStations(t *testing.T) {
	ix := NewIndex([]model.Record{posRec(base, "SCC2", "PRD_001", 1)})
	if _, ok := ix.Window(base, "SCC1", 10, MatchPOSSKU("PRD_001")); ok {
		t.Fatalf("record at another station should not match")
	}
}
