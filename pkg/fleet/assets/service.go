package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/export"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// Service implements asset operations.
type Service struct {
	db      *sqlx.DB
	store   *Store
	auditor audit.Auditor
	logger  *slog.Logger
}

// NewService creates an asset service.
func NewService(db *sqlx.DB, auditor audit.Auditor) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		auditor: auditor,
		logger:  slog.Default().With("component", "assets"),
	}
}

// Store returns the underlying store for use by other services.
func (s *Service) Store() *Store {
	return s.store
}

// Create validates and stores a new asset. New assets are active unless a
// status is given.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Asset, error) {
	verr := apperr.NewValidationError()
	if strings.TrimSpace(in.AssetTag) == "" {
		verr.Add("asset_tag", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if !in.Type.Valid() {
		verr.Add("type", "must be one of vehicle, trailer, equipment, tool")
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	if !in.Status.Valid() {
		verr.Add("status", "must be one of active, in_shop, out_of_service, retired")
	}
	if in.VIN != "" && !ValidVIN(in.VIN) {
		verr.Add("vin", "must be 17 characters without I, O or Q")
	}
	if in.Odometer < 0 {
		verr.Add("odometer", "must not be negative")
	}
	if in.EngineHours < 0 {
		verr.Add("engine_hours", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := storage.Now()
	a := &Asset{
		ID:           storage.NewID(),
		AssetTag:     strings.TrimSpace(in.AssetTag),
		Name:         strings.TrimSpace(in.Name),
		Type:         in.Type,
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		VIN:          strings.ToUpper(in.VIN),
		LicensePlate: in.LicensePlate,
		Status:       in.Status,
		Odometer:     in.Odometer,
		EngineHours:  in.EngineHours,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("asset tag %q is already in use", a.AssetTag)
		}
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "asset", a.ID, map[string]any{
		"asset_tag": a.AssetTag,
		"type":      a.Type,
	}))
	return a, nil
}

// Get returns an asset by id.
func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of assets matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Asset, error) {
	return s.store.List(ctx, f, true)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Asset, error) {
	var (
		a       *Asset
		changes = map[string]any{}
	)
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		var err error
		if a, err = store.Get(ctx, id); err != nil {
			return err
		}

		verr := apperr.NewValidationError()
		setString(&a.AssetTag, in.AssetTag, "asset_tag", changes)
		setString(&a.Name, in.Name, "name", changes)
		setString(&a.Make, in.Make, "make", changes)
		setString(&a.Model, in.Model, "model", changes)
		setString(&a.LicensePlate, in.LicensePlate, "license_plate", changes)
		setString(&a.Notes, in.Notes, "notes", changes)
		if in.Type != nil {
			if !in.Type.Valid() {
				verr.Add("type", "must be one of vehicle, trailer, equipment, tool")
			}
			a.Type = *in.Type
			changes["type"] = a.Type
		}
		if in.Year != nil {
			a.Year = *in.Year
			changes["year"] = a.Year
		}
		if in.VIN != nil {
			if *in.VIN != "" && !ValidVIN(*in.VIN) {
				verr.Add("vin", "must be 17 characters without I, O or Q")
			}
			a.VIN = strings.ToUpper(*in.VIN)
			changes["vin"] = a.VIN
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				verr.Add("status", "must be one of active, in_shop, out_of_service, retired")
			}
			changes["status"] = *in.Status
			a.Status = *in.Status
		}
		if strings.TrimSpace(a.AssetTag) == "" {
			verr.Add("asset_tag", "is required")
		}
		if strings.TrimSpace(a.Name) == "" {
			verr.Add("name", "is required")
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		a.UpdatedAt = storage.Now()
		if err := store.Update(ctx, a); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict("asset tag %q is already in use", a.AssetTag)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "asset", a.ID, changes))
	return a, nil
}

func setString(dst *string, v *string, key string, changes map[string]any) {
	if v == nil {
		return
	}
	*dst = strings.TrimSpace(*v)
	changes[key] = *dst
}

// Delete removes an asset. Assets with unfinished work orders cannot be
// deleted; assets with any recorded history are rejected by the database's
// foreign keys and surface as a conflict as well.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		if _, err := store.Get(ctx, id); err != nil {
			return err
		}
		open, err := store.CountOpenWorkOrders(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperr.Conflict("asset has %d open work orders", open)
		}
		if err := store.Delete(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict("asset has recorded history; retire it instead")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "asset", id, nil))
	return nil
}

// RecordMeter stores new odometer and engine hour readings. A reading lower
// than the stored one is rejected.
func (s *Service) RecordMeter(ctx context.Context, id string, in MeterInput) (*Asset, error) {
	if in.Odometer == nil && in.EngineHours == nil {
		return nil, apperr.Invalid("a meter reading requires odometer or engine_hours")
	}

	var (
		a       *Asset
		changes = map[string]any{}
	)
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		var err error
		if a, err = store.Get(ctx, id); err != nil {
			return err
		}

		verr := apperr.NewValidationError()
		if in.Odometer != nil {
			if *in.Odometer < a.Odometer {
				verr.Add("odometer", fmt.Sprintf("must not be lower than the current reading %.1f", a.Odometer))
			}
			changes["odometer"] = map[string]any{"from": a.Odometer, "to": *in.Odometer}
			a.Odometer = *in.Odometer
		}
		if in.EngineHours != nil {
			if *in.EngineHours < a.EngineHours {
				verr.Add("engine_hours", fmt.Sprintf("must not be lower than the current reading %.1f", a.EngineHours))
			}
			changes["engine_hours"] = map[string]any{"from": a.EngineHours, "to": *in.EngineHours}
			a.EngineHours = *in.EngineHours
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		a.UpdatedAt = storage.Now()
		return store.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "asset", a.ID, changes))
	return a, nil
}

// ListLocations returns recent position reports for an asset.
func (s *Service) ListLocations(ctx context.Context, assetID string, page storage.Page) ([]Location, error) {
	if _, err := s.store.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListLocations(ctx, assetID, page)
}

var csvHeader = []string{
	"id", "asset_tag", "name", "type", "make", "model", "year", "vin",
	"license_plate", "status", "odometer", "engine_hours", "created_at",
}

// Export writes every asset matching f as CSV, ignoring f.Page.
func (s *Service) Export(ctx context.Context, w io.Writer, f Filter) (int, error) {
	list, err := s.store.List(ctx, f, false)
	if err != nil {
		return 0, err
	}
	err = export.CSV(ctx, w, csvHeader, list, func(a Asset) []string {
		return []string{
			a.ID, a.AssetTag, a.Name, string(a.Type), a.Make, a.Model, export.Int(a.Year), a.VIN,
			a.LicensePlate, string(a.Status), export.Float(a.Odometer), export.Float(a.EngineHours),
			export.Time(a.CreatedAt),
		}
	})
	if err != nil {
		return 0, err
	}
	s.logger.DebugContext(ctx, "assets exported", "count", len(list))
	return len(list), nil
}
