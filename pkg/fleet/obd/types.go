package obd

import (
	"time"

	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/storage"
)

// Event is a trouble code reported by an asset.
type Event struct {
	ID          string    `db:"id" json:"id"`
	AssetID     string    `db:"asset_id" json:"asset_id"`
	Code        string    `db:"code" json:"code"`
	System      System    `db:"dtc_system" json:"system"`
	Description string    `db:"description" json:"description,omitempty"`
	Odometer    float64   `db:"odometer" json:"odometer"`
	WorkOrderID string    `db:"work_order_id" json:"work_order_id,omitempty"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
}

// IngestInput carries codes read from an asset, either as a list of codes
// or as a raw mode 03 adapter response.
type IngestInput struct {
	Codes      []string   `json:"codes" validate:"omitempty,max=64,dive,dtc"`
	Raw        string     `json:"raw" validate:"max=4096"`
	Odometer   float64    `json:"odometer" validate:"gte=0"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// IngestResult is the outcome of an ingest. WorkOrder is set when the
// codes opened a new work order.
type IngestResult struct {
	Events    []Event               `json:"events"`
	Critical  []string              `json:"critical,omitempty"`
	WorkOrder *workorders.WorkOrder `json:"work_order,omitempty"`
}

// Filter selects trouble code events.
type Filter struct {
	AssetID string
	Code    string
	From    time.Time
	To      time.Time
	Page    storage.Page
}
