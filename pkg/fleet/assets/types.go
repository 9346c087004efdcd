package assets

import (
	"strings"
	"time"

	"fleetworks/depot/pkg/storage"
)

// Type classifies an asset.
type Type string

const (
	TypeVehicle   Type = "vehicle"
	TypeTrailer   Type = "trailer"
	TypeEquipment Type = "equipment"
	TypeTool      Type = "tool"
)

// Valid reports whether t is a known asset type.
func (t Type) Valid() bool {
	switch t {
	case TypeVehicle, TypeTrailer, TypeEquipment, TypeTool:
		return true
	}
	return false
}

// Status is the operational state of an asset.
type Status string

const (
	StatusActive       Status = "active"
	StatusInShop       Status = "in_shop"
	StatusOutOfService Status = "out_of_service"
	StatusRetired      Status = "retired"
)

// Valid reports whether s is a known asset status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInShop, StatusOutOfService, StatusRetired:
		return true
	}
	return false
}

// Asset is a tracked piece of fleet equipment.
type Asset struct {
	ID           string    `db:"id" json:"id"`
	AssetTag     string    `db:"asset_tag" json:"asset_tag"`
	Name         string    `db:"name" json:"name"`
	Type         Type      `db:"asset_type" json:"type"`
	Make         string    `db:"make" json:"make"`
	Model        string    `db:"model" json:"model"`
	Year         int       `db:"year" json:"year"`
	VIN          string    `db:"vin" json:"vin"`
	LicensePlate string    `db:"license_plate" json:"license_plate"`
	Status       Status    `db:"status" json:"status"`
	Odometer     float64   `db:"odometer" json:"odometer"`
	EngineHours  float64   `db:"engine_hours" json:"engine_hours"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CreateInput holds the fields of a new asset.
type CreateInput struct {
	AssetTag     string  `json:"asset_tag" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,max=200"`
	Type         Type    `json:"type" validate:"required,oneof=vehicle trailer equipment tool"`
	Make         string  `json:"make" validate:"max=100"`
	Model        string  `json:"model" validate:"max=100"`
	Year         int     `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	VIN          string  `json:"vin" validate:"omitempty,vin"`
	LicensePlate string  `json:"license_plate" validate:"max=20"`
	Status       Status  `json:"status" validate:"omitempty,oneof=active in_shop out_of_service retired"`
	Odometer     float64 `json:"odometer" validate:"gte=0"`
	EngineHours  float64 `json:"engine_hours" validate:"gte=0"`
	Notes        string  `json:"notes" validate:"max=4000"`
}

// UpdateInput holds a partial asset update; nil fields are left unchanged.
type UpdateInput struct {
	AssetTag     *string `json:"asset_tag" validate:"omitempty,max=64"`
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Type         *Type   `json:"type" validate:"omitempty,oneof=vehicle trailer equipment tool"`
	Make         *string `json:"make" validate:"omitempty,max=100"`
	Model        *string `json:"model" validate:"omitempty,max=100"`
	Year         *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	VIN          *string `json:"vin" validate:"omitempty,vin"`
	LicensePlate *string `json:"license_plate" validate:"omitempty,max=20"`
	Status       *Status `json:"status" validate:"omitempty,oneof=active in_shop out_of_service retired"`
	Notes        *string `json:"notes" validate:"omitempty,max=4000"`
}

// MeterInput is a meter reading. At least one value must be set.
type MeterInput struct {
	Odometer    *float64 `json:"odometer" validate:"omitempty,gte=0"`
	EngineHours *float64 `json:"engine_hours" validate:"omitempty,gte=0"`
}

// Filter selects assets for listing and export.
type Filter struct {
	Status Status
	Type   Type
	Search string
	Page   storage.Page
}

// ValidVIN reports whether s is a 17-character vehicle identification
// number. The letters I, O and Q never appear in a VIN.
func ValidVIN(s string) bool {
	if len(s) != 17 {
		return false
	}
	for _, r := range strings.ToUpper(s) {
		switch {
		case r == 'I' || r == 'O' || r == 'Q':
			return false
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
