package rules

import (
	"math"
	"sort"

	"shelfguard/internal/correlate"
	"shelfguard/internal/model"
	"shelfguard/internal/risk"
)

// InventoryDiscrepancies reconciles the first inventory snapshot against
// POS sales and RFID-observed stock. Expected counts may go negative,
// which signals over-sale and still produces a discrepancy.
func (s *Set) InventoryDiscrepancies(snapshots, pos, rfid []model.Record) []model.Detection {
	baseline, ok := firstSnapshot(snapshots)
	if !ok {
		return nil
	}

	expected := make(map[string]float64, len(baseline.Inventory))
	for sku, count := range baseline.Inventory {
		expected[sku] = count
	}
	for _, rec := range pos {
		if rec.POS == nil || rec.POS.SKU == "" {
			continue
		}
		if _, tracked := expected[rec.POS.SKU]; tracked {
			expected[rec.POS.SKU]--
		}
	}

	actual := make(map[string]float64)
	for _, rec := range rfid {
		if rec.RFID == nil || rec.RFID.SKU == "" {
			continue
		}
		if rec.RFID.Location == model.LocationScanArea || rec.RFID.Location == model.LocationShelf {
			actual[rec.RFID.SKU]++
		}
	}

	skus := make([]string, 0, len(expected))
	for sku := range expected {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	threshold := s.cfg.InventoryThresholdPercent
	out := make([]model.Detection, 0)
	for _, sku := range skus {
		expectedCount := expected[sku]
		if expectedCount <= 0 {
			// Zero or negative expected counts cannot be compared by ratio.
			continue
		}
		actualCount := actual[sku]
		diffPercent := math.Abs(actualCount-expectedCount) / expectedCount * 100
		if diffPercent <= threshold {
			continue
		}
		score := risk.ScoreCapped(50, 95, diffPercent*1.1)
		out = append(out, model.Detection{
			Timestamp: baseline.Timestamp,
			Kind:      model.KindInventoryGap,
			RiskScore: score,
			Severity:  s.ops.Severity(score),
			Attrs: map[string]any{
				"sku":                sku,
				"expected_inventory": expectedCount,
				"actual_inventory":   actualCount,
				"difference":         actualCount - expectedCount,
				"difference_percent": diffPercent,
			},
		})
	}
	return out
}

func firstSnapshot(snapshots []model.Record) (model.Record, bool) {
	var first model.Record
	found := false
	for _, rec := range snapshots {
		if rec.Inventory == nil {
			continue
		}
		if !found || rec.Timestamp.Before(first.Timestamp) ||
			(rec.Timestamp.Equal(first.Timestamp) && rec.Seq < first.Seq) {
			first = rec
			found = true
		}
	}
	return first, found
}

// Successes records transactions where POS, RFID and vision all agree on
// the same SKU at the same (timestamp, station). These are baseline
// signals, not alerts.
func (s *Set) Successes(pos []model.Record, rfidIndex, visionIndex *correlate.Index) []model.Detection {
	out := make([]model.Detection, 0)
	for _, rec := range pos {
		if rec.POS == nil || rec.POS.SKU == "" || rec.Timestamp.IsZero() {
			continue
		}
		rfid, ok := rfidIndex.Exact(rec.Timestamp, rec.StationID, nil)
		if !ok || rfid.RFID == nil {
			continue
		}
		vision, ok := visionIndex.Exact(rec.Timestamp, rec.StationID, nil)
		if !ok || vision.Vision == nil {
			continue
		}
		if rfid.RFID.SKU != rec.POS.SKU || vision.Vision.PredictedProduct != rec.POS.SKU {
			continue
		}
		attrs := map[string]any{
			"product_sku":   rec.POS.SKU,
			"service_score": 95,
		}
		if rec.POS.CustomerID != "" {
			attrs["customer_id"] = rec.POS.CustomerID
		}
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindSuccess,
			StationID: rec.StationID,
			RiskScore: 5.0,
			Severity:  model.SeverityLow,
			Attrs:     attrs,
		})
	}
	return out
}
