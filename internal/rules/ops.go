package rules

import (
	"fmt"

	"shelfguard/internal/correlate"
	"shelfguard/internal/model"
	"shelfguard/internal/risk"
)

// LongQueues flags queue samples whose customer count exceeds the
// configured threshold.
func (s *Set) LongQueues(queue []model.Record) []model.Detection {
	out := make([]model.Detection, 0)
	threshold := s.cfg.QueueLengthThreshold
	for _, rec := range queue {
		if rec.Queue == nil {
			continue
		}
		count := rec.Queue.CustomerCount
		if count <= threshold {
			continue
		}
		score := risk.ScoreCapped(48, 92, float64(count-threshold)*8)
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindLongQueue,
			StationID: rec.StationID,
			RiskScore: score,
			Severity:  s.ops.Severity(score),
			Attrs: map[string]any{
				"num_of_customers": count,
			},
		})
	}
	return out
}

// LongWaits flags queue samples whose average dwell time exceeds the
// configured threshold. Risk grows with both the overage and the number
// of customers affected.
func (s *Set) LongWaits(queue []model.Record) []model.Detection {
	out := make([]model.Detection, 0)
	threshold := s.cfg.WaitTimeThresholdSec
	for _, rec := range queue {
		if rec.Queue == nil {
			continue
		}
		dwell := rec.Queue.AverageDwellTime
		if dwell <= threshold {
			continue
		}
		timeFactor := risk.CapFactor((dwell-threshold)/60*15, 35)
		customerFactor := risk.CapFactor(float64(rec.Queue.CustomerCount)*3, 15)
		score := risk.ScoreCapped(45, 90, timeFactor, customerFactor)
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindLongWait,
			StationID: rec.StationID,
			RiskScore: score,
			Severity:  s.ops.Severity(score),
			Attrs: map[string]any{
				"wait_time_seconds": dwell,
				"customer_count":    rec.Queue.CustomerCount,
			},
		})
	}
	return out
}

// StaffingNeeds recommends opening another lane when the queue is both
// long and slow, or when it is severely long on its own.
func (s *Set) StaffingNeeds(queue []model.Record) []model.Detection {
	out := make([]model.Detection, 0)
	countThreshold := s.cfg.QueueLengthThreshold
	waitThreshold := s.cfg.WaitTimeThresholdSec
	for _, rec := range queue {
		if rec.Queue == nil {
			continue
		}
		count := rec.Queue.CustomerCount
		dwell := rec.Queue.AverageDwellTime

		needsStaff := (count > countThreshold && dwell > waitThreshold) ||
			float64(count) > float64(countThreshold)*1.5
		if !needsStaff {
			continue
		}

		countFactor := 0.0
		if count > countThreshold {
			countFactor = float64(count-countThreshold) * 4
		}
		waitFactor := 0.0
		if dwell > waitThreshold {
			waitFactor = risk.CapFactor((dwell-waitThreshold)/60*5, 20)
		}
		score := risk.ScoreCapped(58, 96, countFactor, waitFactor)
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindStaffingNeeds,
			StationID: rec.StationID,
			RiskScore: score,
			Severity:  s.ops.Severity(score),
			Attrs: map[string]any{
				"staff_type": "Cashier",
				"reason":     fmt.Sprintf("Queue: %d, Wait: %gs", count, dwell),
			},
		})
	}
	return out
}

// SystemCrashes coalesces faulty-status records into per-(station, source)
// sessions and emits one detection per session.
func (s *Set) SystemCrashes(records []model.Record) []model.Detection {
	sessions := correlate.CoalesceFaults(records, s.cfg.CrashSessionMaxGap)
	out := make([]model.Detection, 0, len(sessions))
	for _, session := range sessions {
		duration := session.Duration().Seconds()
		countFactor := risk.CapFactor(float64(session.Count)*2, 20)
		durationFactor := risk.CapFactor(duration/10, 5)
		score := risk.Score(75, countFactor, durationFactor)
		out = append(out, model.Detection{
			Timestamp: session.Start,
			Kind:      model.KindSystemCrash,
			StationID: session.StationID,
			RiskScore: score,
			Severity:  s.ops.Severity(score),
			Attrs: map[string]any{
				"system_source":    string(session.Source),
				"crash_count":      session.Count,
				"duration_seconds": int(duration),
				"status":           session.Status,
			},
		})
	}
	return out
}
