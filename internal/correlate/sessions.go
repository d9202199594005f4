package correlate

import (
	"sort"
	"time"

	"shelfguard/internal/model"
)

// FaultSession is a run of faulty-status records for one (station, source)
// key. It lives only for the duration of one aggregation pass.
type FaultSession struct {
	StationID string
	Source    model.SourceKind
	Status    string
	Start     time.Time
	End       time.Time
	Count     int
}

func (s FaultSession) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type sessionKey struct {
	station string
	source  model.SourceKind
}

// CoalesceFaults merges consecutive faulty-status records sharing a
// (station, source) key into sessions. A positive maxGap starts a new
// session when two occurrences are further apart than the gap; maxGap 0
// merges every occurrence for a key into one session regardless of
// distance, matching the legacy behavior.
func CoalesceFaults(records []model.Record, maxGap time.Duration) []FaultSession {
	faulty := make([]model.Record, 0)
	for _, rec := range records {
		if model.IsFaultStatus(rec.Status) && !rec.Timestamp.IsZero() {
			faulty = append(faulty, rec)
		}
	}
	sort.Slice(faulty, func(i, j int) bool {
		if !faulty[i].Timestamp.Equal(faulty[j].Timestamp) {
			return faulty[i].Timestamp.Before(faulty[j].Timestamp)
		}
		return faulty[i].Seq < faulty[j].Seq
	})

	open := make(map[sessionKey]*FaultSession)
	sessions := make([]*FaultSession, 0)
	for _, rec := range faulty {
		k := sessionKey{station: rec.StationID, source: rec.Source}
		cur := open[k]
		if cur != nil && maxGap > 0 && rec.Timestamp.Sub(cur.End) > maxGap {
			cur = nil
		}
		if cur == nil {
			cur = &FaultSession{
				StationID: rec.StationID,
				Source:    rec.Source,
				Status:    rec.Status,
				Start:     rec.Timestamp,
				End:       rec.Timestamp,
				Count:     1,
			}
			open[k] = cur
			sessions = append(sessions, cur)
			continue
		}
		cur.End = rec.Timestamp
		cur.Count++
	}

	out := make([]FaultSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		if out[i].StationID != out[j].StationID {
			return out[i].StationID < out[j].StationID
		}
		return out[i].Source < out[j].Source
	})
	return out
}
