package model

import "time"

type SourceKind string

const (
	SourcePOS       SourceKind = "POS"
	SourceRFID      SourceKind = "RFID"
	SourceVision    SourceKind = "VISION"
	SourceQueue     SourceKind = "QUEUE"
	SourceInventory SourceKind = "INVENTORY_SNAPSHOT"
)

// Status values observed on the wire. Anything else is treated as nominal.
const (
	StatusActive    = "Active"
	StatusCrash     = "System Crash"
	StatusReadError = "Read Error"
)

func IsFaultStatus(status string) bool {
	return status == StatusCrash || status == StatusReadError
}

type RFIDLocation string

const (
	LocationScanArea RFIDLocation = "IN_SCAN_AREA"
	LocationShelf    RFIDLocation = "SHELF"
)

type POSData struct {
	SKU        string   `json:"sku"`
	WeightG    float64  `json:"weight_g"`
	CustomerID string   `json:"customer_id"`
	Price      *float64 `json:"price,omitempty"`
}

type RFIDData struct {
	SKU      string       `json:"sku"`
	Location RFIDLocation `json:"location"`
}

type VisionData struct {
	PredictedProduct string  `json:"predicted_product"`
	Accuracy         float64 `json:"accuracy"`
}

type QueueData struct {
	CustomerCount    int     `json:"customer_count"`
	AverageDwellTime float64 `json:"average_dwell_time"`
}

// Record is one normalized reading from a station data source. Exactly one
// payload pointer is set, matching Source. Seq is the ingest sequence number
// and is the deterministic tie-break for correlation.
type Record struct {
	Seq       int64              `json:"-"`
	Timestamp time.Time          `json:"timestamp"`
	StationID string             `json:"station_id"`
	Source    SourceKind         `json:"source"`
	Status    string             `json:"status,omitempty"`
	POS       *POSData           `json:"pos,omitempty"`
	RFID      *RFIDData          `json:"rfid,omitempty"`
	Vision    *VisionData        `json:"vision,omitempty"`
	Queue     *QueueData         `json:"queue,omitempty"`
	Inventory map[string]float64 `json:"inventory,omitempty"`
}

type Product struct {
	SKU     string  `json:"sku"`
	Name    string  `json:"name"`
	Barcode string  `json:"barcode"`
	WeightG float64 `json:"weight_g"`
	Price   float64 `json:"price"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Age     string `json:"age"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank orders severities for monotonicity checks; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

type DetectionKind string

const (
	KindSuccess          DetectionKind = "SUCCESS"
	KindScannerAvoidance DetectionKind = "SCANNER_AVOIDANCE"
	KindBarcodeSwitching DetectionKind = "BARCODE_SWITCHING"
	KindWeightMismatch   DetectionKind = "WEIGHT_DISCREPANCY"
	KindSystemCrash      DetectionKind = "SYSTEM_CRASH"
	KindLongQueue        DetectionKind = "LONG_QUEUE"
	KindLongWait         DetectionKind = "LONG_WAIT"
	KindInventoryGap     DetectionKind = "INVENTORY_DISCREPANCY"
	KindStaffingNeeds    DetectionKind = "STAFFING_NEEDS"
	KindCheckoutAction   DetectionKind = "CHECKOUT_ACTION"
	KindHighRiskCustomer DetectionKind = "HIGH_RISK_CUSTOMER"
	KindStationAlert     DetectionKind = "STATION_PERFORMANCE_ALERT"
)

type KindInfo struct {
	ID   string
	Name string
}

var kindTable = map[DetectionKind]KindInfo{
	KindSuccess:          {ID: "E000", Name: "Succes Operation"},
	KindScannerAvoidance: {ID: "E001", Name: "Scanner Avoidance"},
	KindBarcodeSwitching: {ID: "E002", Name: "Barcode Switching"},
	KindWeightMismatch:   {ID: "E003", Name: "Weight Discrepancies"},
	KindSystemCrash:      {ID: "E004", Name: "Unexpected Systems Crash"},
	KindLongQueue:        {ID: "E005", Name: "Long Queue Length"},
	KindLongWait:         {ID: "E006", Name: "Long Wait Time"},
	KindInventoryGap:     {ID: "E007", Name: "Inventory Discrepancy"},
	KindStaffingNeeds:    {ID: "E008", Name: "Staffing Needs"},
	KindCheckoutAction:   {ID: "E009", Name: "Checkout Station Action"},
	KindHighRiskCustomer: {ID: "E010", Name: "High-Risk Customer"},
	KindStationAlert:     {ID: "E011", Name: "Station Performance Alert"},
}

func (k DetectionKind) Info() KindInfo {
	if info, ok := kindTable[k]; ok {
		return info
	}
	return KindInfo{ID: "E999", Name: "Unknown Event"}
}

// Detection is the engine's output unit. Attrs carries the rule-specific
// fields; values are never nil. Immutable once produced.
type Detection struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      DetectionKind  `json:"kind"`
	StationID string         `json:"station_id,omitempty"`
	RiskScore float64        `json:"risk_score"`
	Severity  Severity       `json:"severity"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

func (d Detection) CustomerID() string {
	if v, ok := d.Attrs["customer_id"].(string); ok {
		return v
	}
	return ""
}
