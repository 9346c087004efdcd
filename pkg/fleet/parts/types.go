package parts

import (
	"time"

	"fleetworks/depot/pkg/storage"
)

// Part is a stocked inventory item.
type Part struct {
	ID             string    `db:"id" json:"id"`
	PartNumber     string    `db:"part_number" json:"part_number"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Category       string    `db:"category" json:"category"`
	UnitCost       float64   `db:"unit_cost" json:"unit_cost"`
	QuantityOnHand int       `db:"quantity_on_hand" json:"quantity_on_hand"`
	ReorderPoint   int       `db:"reorder_point" json:"reorder_point"`
	BinLocation    string    `db:"bin_location" json:"bin_location"`
	Vendor         string    `db:"vendor" json:"vendor"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the part is at or below its reorder point.
func (p *Part) LowStock() bool {
	return p.QuantityOnHand <= p.ReorderPoint
}

// Transaction is one stock movement.
type Transaction struct {
	ID          string    `db:"id" json:"id"`
	PartID      string    `db:"part_id" json:"part_id"`
	Delta       int       `db:"delta" json:"delta"`
	Reason      string    `db:"reason" json:"reason"`
	WorkOrderID string    `db:"work_order_id" json:"work_order_id,omitempty"`
	ActorID     string    `db:"actor_id" json:"actor_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateInput holds the fields of a new part.
type CreateInput struct {
	PartNumber     string  `json:"part_number" validate:"required,max=64"`
	Name           string  `json:"name" validate:"required,max=200"`
	Description    string  `json:"description" validate:"max=2000"`
	Category       string  `json:"category" validate:"max=100"`
	UnitCost       float64 `json:"unit_cost" validate:"gte=0"`
	QuantityOnHand int     `json:"quantity_on_hand" validate:"gte=0"`
	ReorderPoint   int     `json:"reorder_point" validate:"gte=0"`
	BinLocation    string  `json:"bin_location" validate:"max=64"`
	Vendor         string  `json:"vendor" validate:"max=200"`
}

// UpdateInput is a partial part update. Stock levels change only through
// AdjustStock.
type UpdateInput struct {
	PartNumber   *string  `json:"part_number" validate:"omitempty,max=64"`
	Name         *string  `json:"name" validate:"omitempty,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	Category     *string  `json:"category" validate:"omitempty,max=100"`
	UnitCost     *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
	ReorderPoint *int     `json:"reorder_point" validate:"omitempty,gte=0"`
	BinLocation  *string  `json:"bin_location" validate:"omitempty,max=64"`
	Vendor       *string  `json:"vendor" validate:"omitempty,max=200"`
}

// AdjustInput is a manual stock adjustment.
type AdjustInput struct {
	Delta  int    `json:"delta" validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required,max=200"`
}

// Filter selects parts for listing.
type Filter struct {
	Category string
	Search   string
	Page     storage.Page
}

// Reasons recorded on stock movements made by the system.
const (
	ReasonInitial   = "initial stock"
	ReasonWorkOrder = "work order"
)
