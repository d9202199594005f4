package rules

import (
	"math"

	"shelfguard/internal/correlate"
	"shelfguard/internal/model"
	"shelfguard/internal/risk"
)

// ScannerAvoidance flags RFID readings in the scan area that have no
// matching POS transaction for the same (station, sku) within the
// configured window.
func (s *Set) ScannerAvoidance(rfid []model.Record, posIndex *correlate.Index) []model.Detection {
	out := make([]model.Detection, 0)
	window := s.cfg.RFIDPOSWindowSec
	for _, rec := range rfid {
		if rec.RFID == nil || rec.RFID.SKU == "" || rec.RFID.Location != model.LocationScanArea {
			continue
		}
		if rec.Timestamp.IsZero() {
			continue
		}
		if _, ok := posIndex.Window(rec.Timestamp, rec.StationID, window, correlate.MatchPOSSKU(rec.RFID.SKU)); ok {
			continue
		}

		price, hasPrice := s.price(rec.RFID.SKU)
		priceFactor := 0.0
		if hasPrice {
			priceFactor = risk.CapFactor(price/30.0, 20)
		}
		// Item passed the scan boundary without being registered.
		score := risk.Score(75, priceFactor, 5)

		attrs := map[string]any{
			"product_sku": rec.RFID.SKU,
		}
		if hasPrice {
			attrs["estimated_loss"] = price
		}
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindScannerAvoidance,
			StationID: rec.StationID,
			RiskScore: score,
			Severity:  s.fraud.Severity(score),
			Attrs:     attrs,
		})
	}
	return out
}

// BarcodeSwitching flags confident vision predictions that disagree with
// the SKU scanned at the same (timestamp, station).
func (s *Set) BarcodeSwitching(vision []model.Record, posIndex *correlate.Index) []model.Detection {
	out := make([]model.Detection, 0)
	minConfidence := s.cfg.RecognitionConfidence
	for _, rec := range vision {
		if rec.Vision == nil || rec.Vision.PredictedProduct == "" || rec.Timestamp.IsZero() {
			continue
		}
		confidence := rec.Vision.Accuracy
		if confidence < minConfidence {
			continue
		}
		pos, ok := posIndex.Exact(rec.Timestamp, rec.StationID, nil)
		if !ok || pos.POS == nil || pos.POS.SKU == "" {
			continue
		}
		predicted := rec.Vision.PredictedProduct
		scanned := pos.POS.SKU
		if predicted == scanned {
			continue
		}

		predictedPrice, hasPredicted := s.price(predicted)
		scannedPrice, hasScanned := s.price(scanned)
		priceGap := 0.0
		if hasPredicted && hasScanned && predictedPrice > scannedPrice {
			priceGap = predictedPrice - scannedPrice
		}
		gapFactor := 0.0
		if priceGap > 0 {
			gapFactor = risk.CapFactor(priceGap/5.0, 25)
		}
		score := risk.Score(70, (confidence-minConfidence)*30.0, gapFactor)

		attrs := map[string]any{
			"actual_sku":  predicted,
			"scanned_sku": scanned,
			"confidence":  confidence,
			"price_gap":   priceGap,
		}
		if pos.POS.CustomerID != "" {
			attrs["customer_id"] = pos.POS.CustomerID
		}
		if hasPredicted {
			attrs["predicted_price"] = predictedPrice
		}
		if hasScanned {
			attrs["scanned_price"] = scannedPrice
		}
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindBarcodeSwitching,
			StationID: rec.StationID,
			RiskScore: score,
			Severity:  s.fraud.Severity(score),
			Attrs:     attrs,
		})
	}
	return out
}

// WeightDiscrepancies compares scanned weight against the catalog weight
// and flags relative differences above the tolerance.
func (s *Set) WeightDiscrepancies(pos []model.Record) []model.Detection {
	out := make([]model.Detection, 0)
	tolerance := s.cfg.WeightTolerancePercent
	for _, rec := range pos {
		if rec.POS == nil || rec.POS.SKU == "" {
			continue
		}
		product, ok := s.product(rec.POS.SKU)
		if !ok || product.WeightG <= 0 {
			continue
		}
		diffPercent := math.Abs(rec.POS.WeightG-product.WeightG) / product.WeightG * 100
		if diffPercent <= tolerance {
			continue
		}

		weightFactor := risk.CapFactor(math.Log(diffPercent+1)*15, 35)
		priceFactor := 0.0
		if product.Price > 0 {
			priceFactor = risk.CapFactor(product.Price/40.0, 15)
		}
		score := risk.Score(55, weightFactor, priceFactor)

		attrs := map[string]any{
			"product_sku":        rec.POS.SKU,
			"expected_weight":    product.WeightG,
			"actual_weight":      rec.POS.WeightG,
			"difference_percent": diffPercent,
		}
		if rec.POS.CustomerID != "" {
			attrs["customer_id"] = rec.POS.CustomerID
		}
		if product.Price > 0 {
			attrs["estimated_loss"] = product.Price
		}
		out = append(out, model.Detection{
			Timestamp: rec.Timestamp,
			Kind:      model.KindWeightMismatch,
			StationID: rec.StationID,
			RiskScore: score,
			Severity:  s.fraud.Severity(score),
			Attrs:     attrs,
		})
	}
	return out
}
