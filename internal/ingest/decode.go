package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shelfguard/internal/model"
)

type rawEvent struct {
	Timestamp string          `json:"timestamp"`
	StationID string          `json:"station_id"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
}

// envelope is the wire shape used by the stream server and kafka topics:
// the dataset name plus the event body.
type envelope struct {
	Dataset string          `json:"dataset"`
	Event   json.RawMessage `json:"event"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
}

func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}

// DecodeRecord turns one JSONL event body into a typed record. Records
// with unparseable bodies or timestamps are rejected; records missing
// optional payload fields are kept and filtered by the rules that need
// those fields.
func DecodeRecord(kind model.SourceKind, line []byte, seq int64) (model.Record, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.Record{}, fmt.Errorf("decode %s event: %w", kind, err)
	}
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return model.Record{}, fmt.Errorf("decode %s event: %w", kind, err)
	}
	rec := model.Record{
		Seq:       seq,
		Timestamp: ts,
		StationID: raw.StationID,
		Source:    kind,
		Status:    raw.Status,
	}
	switch kind {
	case model.SourcePOS:
		var data model.POSData
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return model.Record{}, fmt.Errorf("decode POS payload: %w", err)
		}
		rec.POS = &data
	case model.SourceRFID:
		var data model.RFIDData
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return model.Record{}, fmt.Errorf("decode RFID payload: %w", err)
		}
		rec.RFID = &data
	case model.SourceVision:
		var data model.VisionData
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return model.Record{}, fmt.Errorf("decode vision payload: %w", err)
		}
		rec.Vision = &data
	case model.SourceQueue:
		var data model.QueueData
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return model.Record{}, fmt.Errorf("decode queue payload: %w", err)
		}
		rec.Queue = &data
	case model.SourceInventory:
		var data map[string]float64
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return model.Record{}, fmt.Errorf("decode inventory payload: %w", err)
		}
		rec.Inventory = data
	default:
		return model.Record{}, fmt.Errorf("unknown source kind %q", kind)
	}
	return rec, nil
}

// DecodeEnvelope handles the {dataset, event} wrapper used by the live
// transports.
func DecodeEnvelope(line []byte, seq int64) (model.Record, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return model.Record{}, fmt.Errorf("decode envelope: %w", err)
	}
	kind, ok := DatasetKind(env.Dataset)
	if !ok {
		return model.Record{}, fmt.Errorf("unknown dataset %q", env.Dataset)
	}
	return DecodeRecord(kind, env.Event, seq)
}

// DatasetKind maps a dataset/file name to its source kind.
func DatasetKind(name string) (model.SourceKind, bool) {
	base := strings.ToLower(strings.TrimSuffix(name, ".jsonl"))
	switch base {
	case "pos_transactions", "pos":
		return model.SourcePOS, true
	case "rfid_readings", "rfid_data", "rfid":
		return model.SourceRFID, true
	case "product_recognition", "vision":
		return model.SourceVision, true
	case "queue_monitoring", "queue_monitor", "queue":
		return model.SourceQueue, true
	case "inventory_snapshots", "current_inventory_data", "inventory":
		return model.SourceInventory, true
	}
	return "", false
}
