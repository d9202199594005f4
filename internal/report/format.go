// Package report converts detections into the persisted wire schema and
// builds run summaries.
package report

import (
	"math"
	"time"

	"shelfguard/internal/model"
)

const wireTimeLayout = "2006-01-02T15:04:05"

// WireEvent is the persisted output schema. EventData never contains nil
// values; optional fields are omitted entirely.
type WireEvent struct {
	Timestamp string         `json:"timestamp"`
	EventID   string         `json:"event_id"`
	EventData map[string]any `json:"event_data"`
}

// Format maps one detection onto the wire schema. Internal attribute
// names are canonical snake_case; the handful of legacy capitalized field
// names exist only at this boundary.
func Format(det model.Detection) WireEvent {
	info := det.Kind.Info()
	data := map[string]any{"event_name": info.Name}

	switch det.Kind {
	case model.KindSuccess:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "customer_id", "customer_id")
		copyAttr(data, det.Attrs, "product_sku", "product_sku")
		copyAttr(data, det.Attrs, "service_score", "service_score")
	case model.KindScannerAvoidance:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "product_sku", "product_sku")
		copyRounded(data, det.Attrs, "estimated_loss", "estimated_loss", 2)
	case model.KindBarcodeSwitching:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "customer_id", "customer_id")
		copyAttr(data, det.Attrs, "actual_sku", "actual_sku")
		copyAttr(data, det.Attrs, "scanned_sku", "scanned_sku")
		copyAttr(data, det.Attrs, "confidence", "confidence")
		copyRounded(data, det.Attrs, "price_gap", "price_gap", 2)
		copyRounded(data, det.Attrs, "predicted_price", "predicted_price", 2)
		copyRounded(data, det.Attrs, "scanned_price", "scanned_price", 2)
	case model.KindWeightMismatch:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "customer_id", "customer_id")
		copyAttr(data, det.Attrs, "product_sku", "product_sku")
		copyInt(data, det.Attrs, "expected_weight", "expected_weight")
		copyInt(data, det.Attrs, "actual_weight", "actual_weight")
		copyRounded(data, det.Attrs, "difference_percent", "difference_percent", 2)
		copyRounded(data, det.Attrs, "estimated_loss", "estimated_loss", 2)
	case model.KindSystemCrash:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "duration_seconds", "duration_seconds")
	case model.KindLongQueue:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "num_of_customers", "num_of_customers")
	case model.KindLongWait:
		putString(data, "station_id", det.StationID)
		copyInt(data, det.Attrs, "wait_time_seconds", "wait_time_seconds")
	case model.KindInventoryGap:
		copyAttr(data, det.Attrs, "SKU", "sku")
		copyInt(data, det.Attrs, "Expected_Inventory", "expected_inventory")
		copyInt(data, det.Attrs, "Actual_Inventory", "actual_inventory")
		copyRounded(data, det.Attrs, "Difference_Percent", "difference_percent", 2)
	case model.KindStaffingNeeds:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "Staff_type", "staff_type")
	case model.KindCheckoutAction:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "Action", "action")
	case model.KindHighRiskCustomer:
		copyAttr(data, det.Attrs, "customer_id", "customer_id")
		copyAttr(data, det.Attrs, "fraud_event_count", "fraud_event_count")
		copyList(data, det.Attrs, "recent_events", "recent_events")
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "stations_involved", "stations_involved")
		copyList(data, det.Attrs, "station_summary", "station_summary")
	case model.KindStationAlert:
		putString(data, "station_id", det.StationID)
		copyAttr(data, det.Attrs, "issues_detected", "issues_detected")
		copyAttr(data, det.Attrs, "max_queue", "max_queue")
		copyInt(data, det.Attrs, "max_wait_seconds", "max_wait_seconds")
		copyRounded(data, det.Attrs, "average_queue", "average_queue", 1)
		copyRounded(data, det.Attrs, "average_wait_seconds", "average_wait_seconds", 1)
		copyList(data, det.Attrs, "recent_samples", "recent_samples")
		copyAttr(data, det.Attrs, "window_minutes", "window_minutes")
	}

	data["risk_score"] = round(det.RiskScore, 1)
	data["severity"] = string(det.Severity)

	return WireEvent{
		Timestamp: det.Timestamp.Format(wireTimeLayout),
		EventID:   info.ID,
		EventData: data,
	}
}

func putString(data map[string]any, key, value string) {
	if value != "" {
		data[key] = value
	}
}

func copyAttr(data map[string]any, attrs map[string]any, outKey, inKey string) {
	if v, ok := attrs[inKey]; ok && v != nil {
		data[outKey] = v
	}
}

func copyRounded(data map[string]any, attrs map[string]any, outKey, inKey string, places int) {
	if v, ok := toFloat(attrs[inKey]); ok {
		data[outKey] = round(v, places)
	}
}

func copyInt(data map[string]any, attrs map[string]any, outKey, inKey string) {
	if v, ok := toFloat(attrs[inKey]); ok {
		data[outKey] = int(v)
	}
}

// copyList re-renders nested evidence lists, formatting embedded
// timestamps with the wire layout.
func copyList(data map[string]any, attrs map[string]any, outKey, inKey string) {
	list, ok := attrs[inKey].([]map[string]any)
	if !ok || len(list) == 0 {
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		entry := make(map[string]any, len(item))
		for k, v := range item {
			if ts, isTime := v.(time.Time); isTime {
				entry[k] = ts.Format(wireTimeLayout)
				continue
			}
			if v != nil {
				entry[k] = v
			}
		}
		out = append(out, entry)
	}
	data[outKey] = out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
