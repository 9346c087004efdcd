package geofence

import (
	"time"

	"fleetworks/depot/pkg/storage"
)

// Shape is the geometry of a geofence.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapePolygon Shape = "polygon"
)

// EventType is a geofence transition.
type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
)

// AlertSettings controls which transitions raise alerts and who receives
// them. DwellMinutes is stored for clients but not evaluated.
type AlertSettings struct {
	OnEnter      bool                   `db:"alert_on_enter" json:"on_enter"`
	OnExit       bool                   `db:"alert_on_exit" json:"on_exit"`
	Recipients   storage.JSON[[]string] `db:"recipients" json:"recipients"`
	DwellMinutes int                    `db:"dwell_minutes" json:"dwell_minutes"`
}

// Enabled reports whether transitions of type t raise alerts.
func (a AlertSettings) Enabled(t EventType) bool {
	switch t {
	case EventEnter:
		return a.OnEnter
	case EventExit:
		return a.OnExit
	}
	return false
}

// Geofence is a named area that asset positions are checked against.
type Geofence struct {
	ID            string                `db:"id" json:"id"`
	Name          string                `db:"name" json:"name"`
	Shape         Shape                 `db:"shape" json:"shape"`
	CenterLat     float64               `db:"center_lat" json:"center_lat,omitempty"`
	CenterLng     float64               `db:"center_lng" json:"center_lng,omitempty"`
	RadiusM       float64               `db:"radius_m" json:"radius_m,omitempty"`
	Vertices      storage.JSON[[]Point] `db:"vertices" json:"vertices,omitempty"`
	AlertSettings `json:"alerts"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether p lies inside the geofence. Points on a circle's
// boundary are inside.
func (g *Geofence) Contains(p Point) bool {
	switch g.Shape {
	case ShapeCircle:
		return Distance(Point{Lat: g.CenterLat, Lng: g.CenterLng}, p) <= g.RadiusM
	case ShapePolygon:
		return InPolygon(p, g.Vertices.V)
	}
	return false
}

// AlertInput sets alert settings.
type AlertInput struct {
	OnEnter      bool     `json:"on_enter"`
	OnExit       bool     `json:"on_exit"`
	Recipients   []string `json:"recipients" validate:"dive,email"`
	DwellMinutes int      `json:"dwell_minutes" validate:"gte=0,lte=10080"`
}

// CreateInput holds a new geofence. Circles need Center and RadiusM;
// polygons need Vertices.
type CreateInput struct {
	Name     string     `json:"name" validate:"required,max=200"`
	Shape    Shape      `json:"shape" validate:"required,oneof=circle polygon"`
	Center   *Point     `json:"center"`
	RadiusM  float64    `json:"radius_m" validate:"gte=0"`
	Vertices []Point    `json:"vertices" validate:"omitempty,dive"`
	Alerts   AlertInput `json:"alerts"`
	Active   *bool      `json:"active"`
}

// UpdateInput changes the name, geometry or active flag of a geofence.
// Geometry fields replace the stored geometry of the same shape.
type UpdateInput struct {
	Name     *string  `json:"name" validate:"omitempty,max=200"`
	Center   *Point   `json:"center"`
	RadiusM  *float64 `json:"radius_m" validate:"omitempty,gt=0"`
	Vertices []Point  `json:"vertices" validate:"omitempty,dive"`
	Active   *bool    `json:"active"`
}

// LocationInput is a position report. A zero RecordedAt means now.
type LocationInput struct {
	Lat        float64   `json:"lat" validate:"gte=-90,lte=90"`
	Lng        float64   `json:"lng" validate:"gte=-180,lte=180"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Event is a recorded transition of an asset across a geofence boundary.
type Event struct {
	ID         string    `db:"id" json:"id"`
	GeofenceID string    `db:"geofence_id" json:"geofence_id"`
	AssetID    string    `db:"asset_id" json:"asset_id"`
	EventType  EventType `db:"event_type" json:"event_type"`
	Lat        float64   `db:"lat" json:"lat"`
	Lng        float64   `db:"lng" json:"lng"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// Alert is an event whose geofence asks for notification.
type Alert struct {
	Event        Event    `json:"event"`
	GeofenceName string   `json:"geofence_name"`
	Recipients   []string `json:"recipients"`
}

// LocationResult reports what a position report triggered.
type LocationResult struct {
	LocationID string  `json:"location_id"`
	Events     []Event `json:"events"`
	// Alerts holds the events whose geofence alerts on that transition.
	Alerts []Alert `json:"alerts"`
}

// EventFilter selects events.
type EventFilter struct {
	GeofenceID string
	AssetID    string
	From       time.Time
	To         time.Time
	Page       storage.Page
}
