// Package aggregate derives secondary detections from primary ones:
// repeated fraud evidence per customer, and sustained pressure per station.
package aggregate

import (
	"sort"
	"time"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
	"shelfguard/internal/risk"
)

type Aggregator struct {
	cfg   config.AggregationConfig
	fraud risk.Ladder
	ops   risk.Ladder
	rules config.RulesConfig
}

func New(cfg config.AggregationConfig, rulesCfg config.RulesConfig) *Aggregator {
	return &Aggregator{
		cfg:   cfg,
		fraud: risk.Ladder{High: rulesCfg.FraudSeverity.High, Medium: rulesCfg.FraudSeverity.Medium},
		ops:   risk.Ladder{High: rulesCfg.OpsSeverity.High, Medium: rulesCfg.OpsSeverity.Medium},
		rules: rulesCfg,
	}
}

// HighRiskCustomers groups primary fraud detections by customer and flags
// customers with repeated qualifying evidence. A detection qualifies when
// its score is within 10 points of the configured minimum; the average
// qualifying score is compounded upward per extra qualifying event.
func (a *Aggregator) HighRiskCustomers(fraud []model.Detection) []model.Detection {
	byCustomer := make(map[string][]model.Detection)
	for _, det := range fraud {
		customer := det.CustomerID()
		if customer == "" {
			continue
		}
		byCustomer[customer] = append(byCustomer[customer], det)
	}

	customers := make([]string, 0, len(byCustomer))
	for customer := range byCustomer {
		customers = append(customers, customer)
	}
	sort.Strings(customers)

	minEvents := a.cfg.HighRiskMinEvents
	minScore := a.cfg.HighRiskMinScore
	out := make([]model.Detection, 0)
	for _, customer := range customers {
		events := byCustomer[customer]
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Timestamp.Before(events[j].Timestamp)
		})

		qualified := make([]model.Detection, 0, len(events))
		for _, det := range events {
			if det.RiskScore >= minScore-10 {
				qualified = append(qualified, det)
			}
		}
		if len(qualified) < minEvents {
			continue
		}

		var sum float64
		for _, det := range qualified {
			sum += det.RiskScore
		}
		avg := sum / float64(len(qualified))
		score := risk.Clamp(avg+float64(len(qualified)-minEvents+1)*5, 100)

		stations := stationBreakdown(qualified)
		recent := make([]map[string]any, 0, 3)
		start := len(qualified) - 3
		if start < 0 {
			start = 0
		}
		for _, det := range qualified[start:] {
			recent = append(recent, map[string]any{
				"type":       string(det.Kind),
				"timestamp":  det.Timestamp,
				"risk_score": det.RiskScore,
				"station_id": det.StationID,
			})
		}

		attrs := map[string]any{
			"customer_id":       customer,
			"fraud_event_count": len(events),
			"recent_events":     recent,
		}
		primary := ""
		if len(stations) > 0 {
			primary = stations[0].StationID
			involved := make([]string, 0, len(stations))
			summary := make([]map[string]any, 0, len(stations))
			for _, st := range stations {
				involved = append(involved, st.StationID)
				summary = append(summary, map[string]any{
					"station_id":  st.StationID,
					"event_count": st.Count,
				})
			}
			attrs["stations_involved"] = involved
			attrs["station_summary"] = summary
		}

		out = append(out, model.Detection{
			Timestamp: qualified[len(qualified)-1].Timestamp,
			Kind:      model.KindHighRiskCustomer,
			StationID: primary,
			RiskScore: score,
			Severity:  a.fraud.Severity(score),
			Attrs:     attrs,
		})
	}
	return out
}

type stationCount struct {
	StationID string
	Count     int
}

func stationBreakdown(detections []model.Detection) []stationCount {
	counts := make(map[string]int)
	for _, det := range detections {
		if det.StationID != "" {
			counts[det.StationID]++
		}
	}
	out := make([]stationCount, 0, len(counts))
	for station, count := range counts {
		out = append(out, stationCount{StationID: station, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].StationID < out[j].StationID
	})
	return out
}

// StationAlerts emits one alert per station whose queue telemetry breached
// the count or wait thresholds often enough inside the trailing window.
// The window is anchored on the station's latest sample, not wall clock.
func (a *Aggregator) StationAlerts(queue []model.Record) []model.Detection {
	byStation := make(map[string][]model.Record)
	for _, rec := range queue {
		if rec.Queue == nil || rec.Timestamp.IsZero() {
			continue
		}
		byStation[rec.StationID] = append(byStation[rec.StationID], rec)
	}

	stationIDs := make([]string, 0, len(byStation))
	for station := range byStation {
		stationIDs = append(stationIDs, station)
	}
	sort.Strings(stationIDs)

	queueThreshold := a.rules.QueueLengthThreshold
	waitThreshold := a.cfg.StationWaitThresholdSec
	out := make([]model.Detection, 0)
	for _, station := range stationIDs {
		samples := byStation[station]
		sort.SliceStable(samples, func(i, j int) bool {
			if !samples[i].Timestamp.Equal(samples[j].Timestamp) {
				return samples[i].Timestamp.Before(samples[j].Timestamp)
			}
			return samples[i].Seq < samples[j].Seq
		})

		pressure := make([]model.Record, 0)
		for _, rec := range samples {
			if rec.Queue.CustomerCount > queueThreshold || rec.Queue.AverageDwellTime > waitThreshold {
				pressure = append(pressure, rec)
			}
		}
		if windowMin := a.cfg.StationAlertWindowMinute; windowMin > 0 && len(pressure) > 0 {
			reference := samples[len(samples)-1].Timestamp
			cutoff := reference.Add(-time.Duration(windowMin) * time.Minute)
			windowed := pressure[:0]
			for _, rec := range pressure {
				if !rec.Timestamp.Before(cutoff) {
					windowed = append(windowed, rec)
				}
			}
			pressure = windowed
		}
		if len(pressure) < a.cfg.StationAlertOccurrences {
			continue
		}

		var maxQueue int
		var maxWait, sumQueue, sumWait float64
		for _, rec := range pressure {
			if rec.Queue.CustomerCount > maxQueue {
				maxQueue = rec.Queue.CustomerCount
			}
			if rec.Queue.AverageDwellTime > maxWait {
				maxWait = rec.Queue.AverageDwellTime
			}
			sumQueue += float64(rec.Queue.CustomerCount)
			sumWait += rec.Queue.AverageDwellTime
		}
		n := float64(len(pressure))

		waitFactor := 0.0
		if maxWait > waitThreshold {
			waitFactor = (maxWait - waitThreshold) / 60 * 6
		}
		score := risk.Clamp(60+float64(maxQueue-queueThreshold)*7+waitFactor, 100)

		recent := make([]map[string]any, 0, 3)
		start := len(pressure) - 3
		if start < 0 {
			start = 0
		}
		for _, rec := range pressure[start:] {
			recent = append(recent, map[string]any{
				"timestamp":    rec.Timestamp,
				"queue":        rec.Queue.CustomerCount,
				"wait_seconds": rec.Queue.AverageDwellTime,
			})
		}

		out = append(out, model.Detection{
			Timestamp: pressure[len(pressure)-1].Timestamp,
			Kind:      model.KindStationAlert,
			StationID: station,
			RiskScore: score,
			Severity:  a.ops.Severity(score),
			Attrs: map[string]any{
				"issues_detected":      len(pressure),
				"max_queue":            maxQueue,
				"max_wait_seconds":     maxWait,
				"average_queue":        sumQueue / n,
				"average_wait_seconds": sumWait / n,
				"recent_samples":       recent,
				"window_minutes":       a.cfg.StationAlertWindowMinute,
			},
		})
	}
	return out
}
