package workorders

import (
	"time"

	"fleetworks/depot/pkg/storage"
)

// Priority orders work by urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Status is the lifecycle state of a work order.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusOnHold     Status = "on_hold"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress: {StatusOnHold, StatusCompleted, StatusCancelled},
	StatusOnHold:     {StatusInProgress, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether a work order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Source records what created a work order.
type Source string

const (
	SourceManual     Source = "manual"
	SourceSchedule   Source = "schedule"
	SourceInspection Source = "inspection"
	SourceDTC        Source = "dtc"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceSchedule, SourceInspection, SourceDTC:
		return true
	}
	return false
}

// WorkOrder is a unit of maintenance or repair work on an asset.
type WorkOrder struct {
	ID          string     `db:"id" json:"id"`
	Number      string     `db:"number" json:"number"`
	AssetID     string     `db:"asset_id" json:"asset_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Priority    Priority   `db:"priority" json:"priority"`
	Status      Status     `db:"status" json:"status"`
	AssignedTo  string     `db:"assigned_to" json:"assigned_to"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Source      Source     `db:"source" json:"source"`
	SourceRef   string     `db:"source_ref" json:"source_ref,omitempty"`
	LaborHours  float64    `db:"labor_hours" json:"labor_hours"`
	LaborRate   float64    `db:"labor_rate" json:"labor_rate"`
	PartsCost   float64    `db:"parts_cost" json:"parts_cost"`
	TotalCost   float64    `db:"total_cost" json:"total_cost"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// PartUsage is a part consumed by a work order at the unit cost of the
// time of use.
type PartUsage struct {
	ID          string    `db:"id" json:"id"`
	WorkOrderID string    `db:"work_order_id" json:"work_order_id"`
	PartID      string    `db:"part_id" json:"part_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitCost    float64   `db:"unit_cost" json:"unit_cost"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateInput holds the fields of a new work order.
type CreateInput struct {
	AssetID     string     `json:"asset_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	Priority    Priority   `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	AssignedTo  string     `json:"assigned_to" validate:"max=200"`
	DueDate     *time.Time `json:"due_date"`
	LaborRate   float64    `json:"labor_rate" validate:"gte=0"`

	// Source and SourceRef are set by the services that generate work
	// orders; requests through the API are always manual.
	Source    Source `json:"-"`
	SourceRef string `json:"-"`
}

// UpdateInput is a partial update of an unfinished work order.
type UpdateInput struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	Priority    *Priority  `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,max=200"`
	DueDate     *time.Time `json:"due_date"`
	LaborHours  *float64   `json:"labor_hours" validate:"omitempty,gte=0"`
	LaborRate   *float64   `json:"labor_rate" validate:"omitempty,gte=0"`
}

// TransitionInput moves a work order to a new status. LaborHours, when
// set, is recorded with the transition.
type TransitionInput struct {
	Status     Status   `json:"status" validate:"required,oneof=open in_progress on_hold completed cancelled"`
	LaborHours *float64 `json:"labor_hours" validate:"omitempty,gte=0"`
}

// AddPartInput consumes parts from stock.
type AddPartInput struct {
	PartID   string `json:"part_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// Filter selects work orders for listing.
type Filter struct {
	AssetID    string
	Status     Status
	Priority   Priority
	Source     Source
	AssignedTo string
	Page       storage.Page
}
