package maintenance

import (
	"fmt"
	"time"

	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/storage"
)

// Schedule is a recurring maintenance task on one asset. It is due when
// any of its non-zero intervals has elapsed since the last completion.
type Schedule struct {
	ID              string              `db:"id" json:"id"`
	AssetID         string              `db:"asset_id" json:"asset_id"`
	Name            string              `db:"name" json:"name"`
	Title           string              `db:"title" json:"title"`
	Description     string              `db:"description" json:"description"`
	Priority        workorders.Priority `db:"priority" json:"priority"`
	IntervalDays    int                 `db:"interval_days" json:"interval_days"`
	IntervalMiles   float64             `db:"interval_miles" json:"interval_miles"`
	IntervalHours   float64             `db:"interval_hours" json:"interval_hours"`
	LastCompletedAt time.Time           `db:"last_completed_at" json:"last_completed_at"`
	LastOdometer    float64             `db:"last_odometer" json:"last_odometer"`
	LastEngineHours float64             `db:"last_engine_hours" json:"last_engine_hours"`
	OpenWorkOrderID string              `db:"open_work_order_id" json:"open_work_order_id,omitempty"`
	Active          bool                `db:"active" json:"active"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// Lead moves due thresholds earlier so work is planned ahead.
type Lead struct {
	Days  int
	Miles float64
	Hours float64
}

// Check is the due state of a schedule against an asset's current meters.
type Check struct {
	Due             bool       `json:"due"`
	Reasons         []string   `json:"reasons,omitempty"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	NextDueOdometer *float64   `json:"next_due_odometer,omitempty"`
	NextDueHours    *float64   `json:"next_due_engine_hours,omitempty"`
}

// Evaluate reports whether s is due for asset a at now. A lead that is
// not smaller than its interval is ignored.
func (s *Schedule) Evaluate(a *assets.Asset, now time.Time, lead Lead) Check {
	var c Check
	if s.IntervalDays > 0 {
		due := s.LastCompletedAt.AddDate(0, 0, s.IntervalDays)
		c.NextDueAt = &due
		threshold := due
		if lead.Days > 0 && lead.Days < s.IntervalDays {
			threshold = due.AddDate(0, 0, -lead.Days)
		}
		if !now.Before(threshold) {
			c.Due = true
			c.Reasons = append(c.Reasons, fmt.Sprintf("%d days since last service", int(now.Sub(s.LastCompletedAt).Hours()/24)))
		}
	}
	if s.IntervalMiles > 0 {
		due := s.LastOdometer + s.IntervalMiles
		c.NextDueOdometer = &due
		if a.Odometer >= due-effectiveLead(lead.Miles, s.IntervalMiles) {
			c.Due = true
			c.Reasons = append(c.Reasons, fmt.Sprintf("%.0f miles since last service", a.Odometer-s.LastOdometer))
		}
	}
	if s.IntervalHours > 0 {
		due := s.LastEngineHours + s.IntervalHours
		c.NextDueHours = &due
		if a.EngineHours >= due-effectiveLead(lead.Hours, s.IntervalHours) {
			c.Due = true
			c.Reasons = append(c.Reasons, fmt.Sprintf("%.1f engine hours since last service", a.EngineHours-s.LastEngineHours))
		}
	}
	return c
}

func effectiveLead(lead, interval float64) float64 {
	if lead <= 0 || lead >= interval {
		return 0
	}
	return lead
}

// CreateInput holds the fields of a new schedule. Missing last-service
// values default to now and the asset's current meters.
type CreateInput struct {
	AssetID         string              `json:"asset_id" validate:"required"`
	Name            string              `json:"name" validate:"required,max=120"`
	Title           string              `json:"title" validate:"max=200"`
	Description     string              `json:"description" validate:"max=4000"`
	Priority        workorders.Priority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	IntervalDays    int                 `json:"interval_days" validate:"gte=0"`
	IntervalMiles   float64             `json:"interval_miles" validate:"gte=0"`
	IntervalHours   float64             `json:"interval_hours" validate:"gte=0"`
	LastCompletedAt *time.Time          `json:"last_completed_at"`
	LastOdometer    *float64            `json:"last_odometer" validate:"omitempty,gte=0"`
	LastEngineHours *float64            `json:"last_engine_hours" validate:"omitempty,gte=0"`
}

// UpdateInput is a partial schedule update.
type UpdateInput struct {
	Name          *string              `json:"name" validate:"omitempty,max=120"`
	Title         *string              `json:"title" validate:"omitempty,max=200"`
	Description   *string              `json:"description" validate:"omitempty,max=4000"`
	Priority      *workorders.Priority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	IntervalDays  *int                 `json:"interval_days" validate:"omitempty,gte=0"`
	IntervalMiles *float64             `json:"interval_miles" validate:"omitempty,gte=0"`
	IntervalHours *float64             `json:"interval_hours" validate:"omitempty,gte=0"`
	Active        *bool                `json:"active"`
}

// Filter selects schedules for listing.
type Filter struct {
	AssetID    string
	ActiveOnly bool
	Page       storage.Page
}

// Generated is a work order materialized for a due schedule.
type Generated struct {
	ScheduleID string                `json:"schedule_id"`
	Reasons    []string              `json:"reasons"`
	WorkOrder  *workorders.WorkOrder `json:"work_order"`
}
