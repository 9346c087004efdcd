package fuel

import (
	"context"
	"log/slog"
	"math"
	"time"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// Service records fuel purchases.
type Service struct {
	db      *sqlx.DB
	store   *Store
	auditor audit.Auditor
	logger  *slog.Logger
}

// NewService creates a fuel service.
func NewService(db *sqlx.DB, auditor audit.Auditor) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		auditor: auditor,
		logger:  slog.Default().With("component", "fuel"),
	}
}

// Create records a fuel entry and raises the asset odometer when the
// entry's reading is higher than the stored one.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Entry, error) {
	verr := apperr.NewValidationError()
	if in.AssetID == "" {
		verr.Add("asset_id", "is required")
	}
	if in.Quantity <= 0 {
		verr.Add("quantity", "must be positive")
	}
	if in.Unit == "" {
		in.Unit = Gallons
	}
	if !in.Unit.Valid() {
		verr.Add("unit", "must be gal or l")
	}
	if in.TotalCost < 0 {
		verr.Add("total_cost", "must not be negative")
	}
	if in.Odometer < 0 {
		verr.Add("odometer", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := storage.Now()
	filled := in.FilledAt
	if filled.IsZero() {
		filled = now
	}
	e := &Entry{
		ID:        storage.NewID(),
		AssetID:   in.AssetID,
		FilledAt:  filled.UTC().Truncate(time.Microsecond),
		Quantity:  in.Quantity,
		Unit:      in.Unit,
		TotalCost: in.TotalCost,
		Odometer:  in.Odometer,
		Vendor:    in.Vendor,
		FullTank:  in.FullTank,
		CreatedBy: identity.ActorOrSystem(ctx).ID,
		CreatedAt: now,
	}

	var raised bool
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		assetStore := assets.NewStore(tx)
		if _, err := assetStore.Get(ctx, e.AssetID); err != nil {
			return err
		}
		if err := s.store.WithTx(tx).Insert(ctx, e); err != nil {
			return err
		}
		if e.Odometer > 0 {
			var err error
			raised, err = assetStore.RaiseOdometer(ctx, e.AssetID, e.Odometer)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "fuel_entry", e.ID, map[string]any{
		"asset_id":        e.AssetID,
		"quantity":        e.Quantity,
		"unit":            e.Unit,
		"odometer_raised": raised,
	}))
	return e, nil
}

// Get returns a fuel entry by id.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of fuel entries.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, error) {
	return s.store.List(ctx, f)
}

// Delete removes a fuel entry. The asset odometer is left as is.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "fuel_entry", id, nil))
	return nil
}

// Stats summarises the fuel history of an asset in unit (gallons when
// empty) over the optional time range in f.
func (s *Service) Stats(ctx context.Context, f Filter, unit Unit) (*Stats, error) {
	if unit == "" {
		unit = Gallons
	}
	if !unit.Valid() {
		return nil, apperr.Invalid("unit must be gal or l")
	}
	if _, err := assets.NewStore(s.db).Get(ctx, f.AssetID); err != nil {
		return nil, err
	}

	history, err := s.store.History(ctx, f)
	if err != nil {
		return nil, err
	}
	st := Summarize(history, unit)
	st.AssetID = f.AssetID
	return st, nil
}

// Summarize computes fuel statistics for entries sorted in fill order.
//
// Efficiency uses the full-tank method: the distance between two full-tank
// fills divided by all fuel bought after the first of them up to and
// including the second. Fills before the first full tank only count
// towards the totals.
func Summarize(entries []Entry, unit Unit) *Stats {
	st := &Stats{Unit: unit, Entries: len(entries)}

	var (
		anchor       *Entry
		segmentFuel  float64
		distance     float64
		measuredFuel float64
	)
	for i := range entries {
		e := &entries[i]
		q := e.Unit.Convert(e.Quantity, unit)
		st.TotalQuantity += q
		st.TotalCost += e.TotalCost

		if anchor != nil {
			segmentFuel += q
		}
		if !e.FullTank || e.Odometer <= 0 {
			continue
		}
		if anchor != nil && e.Odometer > anchor.Odometer {
			distance += e.Odometer - anchor.Odometer
			measuredFuel += segmentFuel
		}
		anchor = e
		segmentFuel = 0
	}

	if st.TotalQuantity > 0 {
		st.AvgUnitPrice = round(st.TotalCost/st.TotalQuantity, 3)
	}
	if measuredFuel > 0 {
		eff := round(distance/measuredFuel, 2)
		st.Efficiency = &eff
		st.Distance = distance
	}
	st.TotalQuantity = round(st.TotalQuantity, 3)
	st.TotalCost = round(st.TotalCost, 2)
	return st
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
