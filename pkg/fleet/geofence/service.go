package geofence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/jmoiron/sqlx"
)

// Service manages geofences and evaluates asset positions against them.
type Service struct {
	db      *sqlx.DB
	store   *Store
	auditor audit.Auditor
	metrics *metrics.Collector
	cfg     config.GeofenceConfig
	logger  *slog.Logger
}

// NewService creates a geofence service. collector may be nil.
func NewService(db *sqlx.DB, auditor audit.Auditor, collector *metrics.Collector, cfg config.GeofenceConfig) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		auditor: auditor,
		metrics: collector,
		cfg:     cfg,
		logger:  slog.Default().With("component", "geofence"),
	}
}

// Create validates and stores a geofence. Geofences are active unless
// Active is false.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Geofence, error) {
	now := storage.Now()
	g := &Geofence{
		ID:        storage.NewID(),
		Name:      strings.TrimSpace(in.Name),
		Shape:     in.Shape,
		RadiusM:   in.RadiusM,
		Vertices:  storage.NewJSON(normalizeRing(in.Vertices)),
		Active:    in.Active == nil || *in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Center != nil {
		g.CenterLat, g.CenterLng = in.Center.Lat, in.Center.Lng
	}
	g.AlertSettings = alertSettings(in.Alerts)

	verr := apperr.NewValidationError()
	if g.Name == "" {
		verr.Add("name", "is required")
	}
	if in.Shape == ShapeCircle && in.Center == nil {
		verr.Add("center", "is required for circles")
	}
	s.validate(g, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, g); err != nil {
		return nil, err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "geofence", g.ID, map[string]any{
		"name":  g.Name,
		"shape": g.Shape,
	}))
	return g, nil
}

func (s *Service) validate(g *Geofence, verr *apperr.ValidationError) {
	switch g.Shape {
	case ShapeCircle:
		if !(Point{Lat: g.CenterLat, Lng: g.CenterLng}).Valid() {
			verr.Add("center", "must be a valid coordinate")
		}
		if g.RadiusM <= 0 {
			verr.Add("radius_m", "must be positive")
		} else if g.RadiusM > s.cfg.MaxRadiusMeters {
			verr.Add("radius_m", fmt.Sprintf("must not exceed %.0f", s.cfg.MaxRadiusMeters))
		}
		if len(g.Vertices.V) > 0 {
			verr.Add("vertices", "are not allowed for circles")
		}
	case ShapePolygon:
		n := len(g.Vertices.V)
		if n < 3 {
			verr.Add("vertices", "a polygon needs at least 3 distinct vertices")
		}
		if s.cfg.MaxVertices > 0 && n > s.cfg.MaxVertices {
			verr.Add("vertices", fmt.Sprintf("must not exceed %d vertices", s.cfg.MaxVertices))
		}
		for i, v := range g.Vertices.V {
			if !v.Valid() {
				verr.Add(fmt.Sprintf("vertices[%d]", i), "must be a valid coordinate")
			}
		}
	default:
		verr.Add("shape", "must be circle or polygon")
	}
	for i, r := range g.Recipients.V {
		if !strings.Contains(r, "@") {
			verr.Add(fmt.Sprintf("alerts.recipients[%d]", i), "must be an email address")
		}
	}
	if g.DwellMinutes < 0 {
		verr.Add("alerts.dwell_minutes", "must not be negative")
	}
}

// normalizeRing drops a closing vertex that repeats the first one.
func normalizeRing(vs []Point) []Point {
	if len(vs) > 1 && vs[0] == vs[len(vs)-1] {
		vs = vs[:len(vs)-1]
	}
	return vs
}

func alertSettings(in AlertInput) AlertSettings {
	recipients := make([]string, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, strings.ToLower(r))
		}
	}
	return AlertSettings{
		OnEnter:      in.OnEnter,
		OnExit:       in.OnExit,
		Recipients:   storage.NewJSON(recipients),
		DwellMinutes: in.DwellMinutes,
	}
}

// Get returns a geofence by id.
func (s *Service) Get(ctx context.Context, id string) (*Geofence, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of geofences.
func (s *Service) List(ctx context.Context, activeOnly bool, page storage.Page) ([]Geofence, error) {
	return s.store.List(ctx, activeOnly, page)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Geofence, error) {
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	verr := apperr.NewValidationError()
	if in.Name != nil {
		g.Name = strings.TrimSpace(*in.Name)
		if g.Name == "" {
			verr.Add("name", "is required")
		}
		changes["name"] = g.Name
	}
	if in.Center != nil || in.RadiusM != nil {
		if g.Shape != ShapeCircle {
			verr.Add("center", "only circles have a center and radius")
		}
		if in.Center != nil {
			g.CenterLat, g.CenterLng = in.Center.Lat, in.Center.Lng
		}
		if in.RadiusM != nil {
			g.RadiusM = *in.RadiusM
		}
		changes["geometry"] = "changed"
	}
	if in.Vertices != nil {
		if g.Shape != ShapePolygon {
			verr.Add("vertices", "only polygons have vertices")
		}
		g.Vertices = storage.NewJSON(normalizeRing(in.Vertices))
		changes["geometry"] = "changed"
	}
	if in.Active != nil {
		g.Active = *in.Active
		changes["active"] = g.Active
	}
	s.validate(g, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	g.UpdatedAt = storage.Now()
	if err := s.store.Update(ctx, g); err != nil {
		return nil, err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "geofence", g.ID, changes))
	return g, nil
}

// UpdateAlertSettings replaces the alert settings of a geofence.
func (s *Service) UpdateAlertSettings(ctx context.Context, id string, in AlertInput) (*Geofence, error) {
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	g.AlertSettings = alertSettings(in)
	verr := apperr.NewValidationError()
	s.validate(g, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	g.UpdatedAt = storage.Now()
	if err := s.store.Update(ctx, g); err != nil {
		return nil, err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "geofence", g.ID, map[string]any{
		"on_enter":   g.OnEnter,
		"on_exit":    g.OnExit,
		"recipients": len(g.Recipients.V),
	}))
	return g, nil
}

// Delete removes a geofence and its history.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.store.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "geofence", id, nil))
	return nil
}

// Events returns a page of recorded transitions.
func (s *Service) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	return s.store.Events(ctx, f)
}

// RecordLocation stores a position report and compares it with the asset's
// previous inside/outside state for every active geofence. Transitions are
// written as events. The result lists every transition in Events; Alerts
// is the subset whose geofence has alerts enabled for that direction.
//
// An asset seen for the first time inside a geofence produces an enter
// event. Reports older than the stored state are kept as history but do not
// change state.
func (s *Service) RecordLocation(ctx context.Context, assetID string, in LocationInput) (*LocationResult, error) {
	p := Point{Lat: in.Lat, Lng: in.Lng}
	if !p.Valid() {
		return nil, apperr.Invalid("lat/lng out of range")
	}
	at := in.RecordedAt.UTC().Truncate(time.Microsecond)
	if in.RecordedAt.IsZero() {
		at = storage.Now()
	}

	res := &LocationResult{Events: []Event{}, Alerts: []Alert{}}
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		assetStore := assets.NewStore(tx)
		if _, err := assetStore.Get(ctx, assetID); err != nil {
			return err
		}
		loc := &assets.Location{ID: storage.NewID(), AssetID: assetID, Lat: p.Lat, Lng: p.Lng, RecordedAt: at}
		if err := assetStore.InsertLocation(ctx, loc); err != nil {
			return err
		}
		res.LocationID = loc.ID

		store := s.store.WithTx(tx)
		fences, err := store.ListActive(ctx)
		if err != nil {
			return err
		}
		states, err := store.States(ctx, assetID)
		if err != nil {
			return err
		}

		for i := range fences {
			g := &fences[i]
			prev, known := states[g.ID]
			if known && at.Before(prev.UpdatedAt) {
				continue
			}

			inside := g.Contains(p)
			if err := store.PutState(ctx, State{AssetID: assetID, GeofenceID: g.ID, Inside: inside, UpdatedAt: at}); err != nil {
				return err
			}

			var typ EventType
			switch {
			case inside && (!known || !prev.Inside):
				typ = EventEnter
			case !inside && known && prev.Inside:
				typ = EventExit
			default:
				continue
			}

			ev := Event{ID: storage.NewID(), GeofenceID: g.ID, AssetID: assetID, EventType: typ, Lat: p.Lat, Lng: p.Lng, OccurredAt: at}
			if err := store.InsertEvent(ctx, &ev); err != nil {
				return err
			}
			res.Events = append(res.Events, ev)
			if g.Enabled(typ) {
				res.Alerts = append(res.Alerts, Alert{Event: ev, GeofenceName: g.Name, Recipients: g.Recipients.V})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range res.Events {
		s.metrics.RecordGeofenceEvent(string(ev.EventType))
	}
	for _, a := range res.Alerts {
		s.logger.InfoContext(ctx, "geofence alert",
			"geofence", a.GeofenceName, "asset_id", assetID, "event", a.Event.EventType, "recipients", len(a.Recipients))
	}
	return res, nil
}
