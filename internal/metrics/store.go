// Package metrics keeps per-station tallies of detected events for the
// dashboard API.
package metrics

import (
	"sync"
	"time"

	"shelfguard/internal/model"
)

type StationStats struct {
	StationID string         `json:"station_id"`
	Total     int            `json:"total"`
	ByKind    map[string]int `json:"by_kind"`
	MaxRisk   float64        `json:"max_risk"`
	AvgRisk   float64        `json:"avg_risk"`
	LastEvent time.Time      `json:"last_event"`
}

type stationAgg struct {
	total     int
	byKind    map[string]int
	maxRisk   float64
	riskSum   float64
	riskCount int
	lastEvent time.Time
	updatedAt time.Time
}

type Store struct {
	mu        sync.RWMutex
	byStation map[string]*stationAgg
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byStation: make(map[string]*stationAgg),
		limit:     limit,
	}
}

func (s *Store) Record(detections []model.Detection) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, det := range detections {
		station := det.StationID
		if station == "" {
			station = "unassigned"
		}
		agg, ok := s.byStation[station]
		if !ok {
			agg = &stationAgg{byKind: make(map[string]int)}
			s.byStation[station] = agg
		}
		agg.total++
		agg.byKind[string(det.Kind)]++
		if det.RiskScore > agg.maxRisk {
			agg.maxRisk = det.RiskScore
		}
		agg.riskSum += det.RiskScore
		agg.riskCount++
		if det.Timestamp.After(agg.lastEvent) {
			agg.lastEvent = det.Timestamp
		}
		agg.updatedAt = now
	}
	if len(s.byStation) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(stationID string) (StationStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.byStation[stationID]
	if !ok {
		return StationStats{}, false
	}
	return agg.stats(stationID), true
}

func (s *Store) GetAll() map[string]StationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]StationStats, len(s.byStation))
	for station, agg := range s.byStation {
		out[station] = agg.stats(station)
	}
	return out
}

func (a *stationAgg) stats(stationID string) StationStats {
	stats := StationStats{
		StationID: stationID,
		Total:     a.total,
		ByKind:    make(map[string]int, len(a.byKind)),
		MaxRisk:   a.maxRisk,
		LastEvent: a.lastEvent,
	}
	for kind, count := range a.byKind {
		stats.ByKind[kind] = count
	}
	if a.riskCount > 0 {
		stats.AvgRisk = a.riskSum / float64(a.riskCount)
	}
	return stats
}

func (s *Store) evictOldest() {
	var oldestStation string
	var oldest time.Time
	for station, agg := range s.byStation {
		if oldestStation == "" || agg.updatedAt.Before(oldest) {
			oldestStation = station
			oldest = agg.updatedAt
		}
	}
	if oldestStation != "" {
		delete(s.byStation, oldestStation)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byStation = make(map[string]*stationAgg)
}
