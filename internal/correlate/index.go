// Package correlate aligns records across streams that should co-occur
// under normal operation.
package correlate

import (
	"sort"
	"time"

	"shelfguard/internal/model"
)

type key struct {
	unix    int64
	station string
}

// Index buckets records by (second-precision timestamp, station). Records
// inside a bucket are ordered by ingest sequence, so lookups are
// deterministic even when two records share a timestamp.
type Index struct {
	buckets map[key][]model.Record
}

func NewIndex(records []model.Record) *Index {
	ix := &Index{buckets: make(map[key][]model.Record, len(records))}
	for _, rec := range records {
		if rec.Timestamp.IsZero() || rec.StationID == "" {
			continue
		}
		k := key{unix: rec.Timestamp.Unix(), station: rec.StationID}
		ix.buckets[k] = append(ix.buckets[k], rec)
	}
	for k := range ix.buckets {
		bucket := ix.buckets[k]
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Seq < bucket[j].Seq })
	}
	return ix
}

// Exact returns the lowest-sequence record at exactly (t, station) that
// satisfies match. A nil match accepts any record.
func (ix *Index) Exact(t time.Time, station string, match func(model.Record) bool) (model.Record, bool) {
	for _, rec := range ix.buckets[key{unix: t.Unix(), station: station}] {
		if match == nil || match(rec) {
			return rec, true
		}
	}
	return model.Record{}, false
}

// Window scans candidate timestamps t-w .. t+w at one-second granularity.
// Offsets are visited in increasing absolute order, negative before
// positive at equal distance, so the first hit is reproducible.
func (ix *Index) Window(t time.Time, station string, windowSec int, match func(model.Record) bool) (model.Record, bool) {
	if rec, ok := ix.Exact(t, station, match); ok {
		return rec, true
	}
	base := t.Unix()
	for off := int64(1); off <= int64(windowSec); off++ {
		for _, candidate := range [2]int64{base - off, base + off} {
			for _, rec := range ix.buckets[key{unix: candidate, station: station}] {
				if match == nil || match(rec) {
					return rec, true
				}
			}
		}
	}
	return model.Record{}, false
}

// MatchPOSSKU matches a POS record carrying the given SKU.
func MatchPOSSKU(sku string) func(model.Record) bool {
	return func(rec model.Record) bool {
		return rec.POS != nil && rec.POS.SKU == sku
	}
}
