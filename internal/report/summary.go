package report

import (
	"sort"

	"shelfguard/internal/model"
)

// Summary is the run digest served by the API and printed by the CLI.
type Summary struct {
	TotalEvents          int            `json:"total_events"`
	EventBreakdown       map[string]int `json:"event_breakdown"`
	FraudEvents          int            `json:"fraud_events"`
	OperationalEvents    int            `json:"operational_events"`
	InventoryEvents      int            `json:"inventory_events"`
	SuccessfulOperations int            `json:"successful_operations"`
	SeverityBreakdown    map[string]int `json:"severity_breakdown"`
	AverageRiskScore     float64        `json:"average_risk_score"`
	HighRiskCustomers    []string       `json:"high_risk_customers"`
	TopRiskEvents        []WireEvent    `json:"top_risk_events"`
	BusiestStations      []StationLoad  `json:"busiest_stations"`
}

type StationLoad struct {
	StationID  string `json:"station_id"`
	EventCount int    `json:"event_count"`
}

var fraudKinds = map[model.DetectionKind]bool{
	model.KindScannerAvoidance: true,
	model.KindBarcodeSwitching: true,
	model.KindWeightMismatch:   true,
	model.KindHighRiskCustomer: true,
}

var operationalKinds = map[model.DetectionKind]bool{
	model.KindSystemCrash:   true,
	model.KindLongQueue:     true,
	model.KindLongWait:      true,
	model.KindStaffingNeeds: true,
	model.KindStationAlert:  true,
}

// Summarize digests a finished pass. Successful operations are excluded
// from the average risk score so routine checkouts do not dilute it.
func Summarize(detections []model.Detection) *Summary {
	s := &Summary{
		TotalEvents:       len(detections),
		EventBreakdown:    make(map[string]int),
		SeverityBreakdown: make(map[string]int),
		HighRiskCustomers: []string{},
		TopRiskEvents:     []WireEvent{},
		BusiestStations:   []StationLoad{},
	}

	stationCounts := make(map[string]int)
	seenCustomers := make(map[string]bool)
	var riskSum float64
	var riskCount int
	for _, det := range detections {
		s.EventBreakdown[det.Kind.Info().Name]++
		s.SeverityBreakdown[string(det.Severity)]++
		switch {
		case det.Kind == model.KindSuccess:
			s.SuccessfulOperations++
		case fraudKinds[det.Kind]:
			s.FraudEvents++
		case operationalKinds[det.Kind]:
			s.OperationalEvents++
		case det.Kind == model.KindInventoryGap:
			s.InventoryEvents++
		}
		if det.Kind != model.KindSuccess {
			riskSum += det.RiskScore
			riskCount++
		}
		if det.StationID != "" {
			stationCounts[det.StationID]++
		}
		if det.Kind == model.KindHighRiskCustomer {
			if customer := det.CustomerID(); customer != "" && !seenCustomers[customer] {
				seenCustomers[customer] = true
				s.HighRiskCustomers = append(s.HighRiskCustomers, customer)
			}
		}
	}
	if riskCount > 0 {
		s.AverageRiskScore = round(riskSum/float64(riskCount), 2)
	}
	sort.Strings(s.HighRiskCustomers)

	ranked := make([]model.Detection, 0, len(detections))
	for _, det := range detections {
		if det.Kind != model.KindSuccess {
			ranked = append(ranked, det)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RiskScore != ranked[j].RiskScore {
			return ranked[i].RiskScore > ranked[j].RiskScore
		}
		return ranked[i].Timestamp.Before(ranked[j].Timestamp)
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	for _, det := range ranked {
		s.TopRiskEvents = append(s.TopRiskEvents, Format(det))
	}

	for station, count := range stationCounts {
		s.BusiestStations = append(s.BusiestStations, StationLoad{StationID: station, EventCount: count})
	}
	sort.Slice(s.BusiestStations, func(i, j int) bool {
		if s.BusiestStations[i].EventCount != s.BusiestStations[j].EventCount {
			return s.BusiestStations[i].EventCount > s.BusiestStations[j].EventCount
		}
		return s.BusiestStations[i].StationID < s.BusiestStations[j].StationID
	})
	if len(s.BusiestStations) > 5 {
		s.BusiestStations = s.BusiestStations[:5]
	}
	return s
}
