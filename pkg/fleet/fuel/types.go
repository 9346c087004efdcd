package fuel

import (
	"time"

	"fleetworks/depot/pkg/storage"
)

// Unit is a fuel volume unit.
type Unit string

const (
	Gallons Unit = "gal"
	Liters  Unit = "l"
)

// litersPerGallon converts US gallons to liters.
const litersPerGallon = 3.785411784

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == Gallons || u == Liters
}

// Convert expresses quantity q, measured in u, in target.
func (u Unit) Convert(q float64, target Unit) float64 {
	switch {
	case u == target:
		return q
	case u == Liters && target == Gallons:
		return q / litersPerGallon
	case u == Gallons && target == Liters:
		return q * litersPerGallon
	}
	return q
}

// Entry is one fuel purchase.
type Entry struct {
	ID        string    `db:"id" json:"id"`
	AssetID   string    `db:"asset_id" json:"asset_id"`
	FilledAt  time.Time `db:"filled_at" json:"filled_at"`
	Quantity  float64   `db:"quantity" json:"quantity"`
	Unit      Unit      `db:"unit" json:"unit"`
	TotalCost float64   `db:"total_cost" json:"total_cost"`
	Odometer  float64   `db:"odometer" json:"odometer"`
	Vendor    string    `db:"vendor" json:"vendor"`
	FullTank  bool      `db:"full_tank" json:"full_tank"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateInput holds a new fuel entry. A zero FilledAt means now.
type CreateInput struct {
	AssetID   string    `json:"asset_id" validate:"required"`
	FilledAt  time.Time `json:"filled_at"`
	Quantity  float64   `json:"quantity" validate:"gt=0"`
	Unit      Unit      `json:"unit" validate:"omitempty,oneof=gal l"`
	TotalCost float64   `json:"total_cost" validate:"gte=0"`
	Odometer  float64   `json:"odometer" validate:"gte=0"`
	Vendor    string    `json:"vendor" validate:"max=200"`
	FullTank  bool      `json:"full_tank"`
}

// Filter selects fuel entries.
type Filter struct {
	AssetID string
	From    time.Time
	To      time.Time
	Page    storage.Page
}

// Stats summarises the fuel history of an asset. Quantities are expressed
// in Unit.
type Stats struct {
	AssetID       string  `json:"asset_id"`
	Unit          Unit    `json:"unit"`
	Entries       int     `json:"entries"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalCost     float64 `json:"total_cost"`
	AvgUnitPrice  float64 `json:"avg_unit_price"`

	// Efficiency is distance per unit of fuel measured between full-tank
	// fills; nil until two full-tank fills with odometer readings exist.
	Efficiency *float64 `json:"efficiency,omitempty"`
	Distance   float64  `json:"distance"`
}
