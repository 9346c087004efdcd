package inspections

import (
	"time"

	"fleetworks/depot/pkg/storage"
)

// Kind is the type of inspection.
type Kind string

const (
	KindPreTrip  Kind = "pre_trip"
	KindPostTrip Kind = "post_trip"
	KindAnnual   Kind = "annual"
	KindCustom   Kind = "custom"
)

// Valid reports whether k is a known inspection kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPreTrip, KindPostTrip, KindAnnual, KindCustom:
		return true
	}
	return false
}

// Result is the outcome of a checklist item or a whole inspection.
type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
	ResultNA   Result = "na"
)

// Item is one checklist line.
type Item struct {
	Name   string `json:"name" validate:"required,max=200"`
	Result Result `json:"result" validate:"required,oneof=pass fail na"`
	Notes  string `json:"notes,omitempty" validate:"max=2000"`
}

// Inspection is a completed asset inspection.
type Inspection struct {
	ID               string               `db:"id" json:"id"`
	AssetID          string               `db:"asset_id" json:"asset_id"`
	InspectorID      string               `db:"inspector_id" json:"inspector_id"`
	Kind             Kind                 `db:"kind" json:"kind"`
	Odometer         float64              `db:"odometer" json:"odometer"`
	Items            storage.JSON[[]Item] `db:"items" json:"items"`
	Result           Result               `db:"result" json:"result"`
	Notes            string               `db:"notes" json:"notes"`
	FormSubmissionID string               `db:"form_submission_id" json:"form_submission_id,omitempty"`
	WorkOrderID      string               `db:"work_order_id" json:"work_order_id,omitempty"`
	CreatedAt        time.Time            `db:"created_at" json:"created_at"`
}

// Failed returns the items that failed.
func (i *Inspection) Failed() []Item {
	var out []Item
	for _, it := range i.Items.V {
		if it.Result == ResultFail {
			out = append(out, it)
		}
	}
	return out
}

// CreateInput holds a submitted inspection.
type CreateInput struct {
	AssetID          string  `json:"asset_id" validate:"required"`
	Kind             Kind    `json:"kind" validate:"required,oneof=pre_trip post_trip annual custom"`
	Odometer         float64 `json:"odometer" validate:"gte=0"`
	Items            []Item  `json:"items" validate:"required,min=1,dive"`
	Notes            string  `json:"notes" validate:"max=4000"`
	FormSubmissionID string  `json:"form_submission_id"`
}

// Filter selects inspections for listing.
type Filter struct {
	AssetID string
	Kind    Kind
	Result  Result
	Page    storage.Page
}
