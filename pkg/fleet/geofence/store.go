package geofence

import (
	"context"
	"time"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const geofenceColumns = `id, name, shape, center_lat, center_lng, radius_m, vertices, alert_on_enter,
	alert_on_exit, recipients, dwell_minutes, active, created_at, updated_at`

// Store persists geofences, per-asset inside/outside state and events.
type Store struct {
	q sqlx.ExtContext
}

// NewStore creates a Store on db.
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{q: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *sqlx.Tx) *Store {
	return &Store{q: tx}
}

// Insert stores a geofence.
func (s *Store) Insert(ctx context.Context, g *Geofence) error {
	_, err := storage.Exec(ctx, s.q, "insert_geofence",
		`INSERT INTO geofences (`+geofenceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Shape, g.CenterLat, g.CenterLng, g.RadiusM, g.Vertices, g.OnEnter,
		g.OnExit, g.Recipients, g.DwellMinutes, g.Active, g.CreatedAt, g.UpdatedAt)
	return err
}

// Update writes every mutable column of g.
func (s *Store) Update(ctx context.Context, g *Geofence) error {
	return storage.ExecOne(ctx, s.q, "update_geofence", "geofence", g.ID,
		`UPDATE geofences SET name = ?, center_lat = ?, center_lng = ?, radius_m = ?, vertices = ?,
			alert_on_enter = ?, alert_on_exit = ?, recipients = ?, dwell_minutes = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		g.Name, g.CenterLat, g.CenterLng, g.RadiusM, g.Vertices,
		g.OnEnter, g.OnExit, g.Recipients, g.DwellMinutes, g.Active, g.UpdatedAt, g.ID)
}

// Get returns the geofence with id.
func (s *Store) Get(ctx context.Context, id string) (*Geofence, error) {
	var g Geofence
	if err := storage.Get(ctx, s.q, "get_geofence", &g,
		`SELECT `+geofenceColumns+` FROM geofences WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns geofences ordered by name, optionally only active ones.
func (s *Store) List(ctx context.Context, activeOnly bool, page storage.Page) ([]Geofence, error) {
	var w storage.Where
	if activeOnly {
		w.Add("active = ?", true)
	}
	out := []Geofence{}
	err := storage.Select(ctx, s.q, "list_geofences", &out,
		`SELECT `+geofenceColumns+` FROM geofences`+w.SQL()+` ORDER BY name, id`+page.SQL(), w.Args()...)
	return out, err
}

// ListActive returns every active geofence.
func (s *Store) ListActive(ctx context.Context) ([]Geofence, error) {
	out := []Geofence{}
	err := storage.Select(ctx, s.q, "list_active_geofences", &out,
		`SELECT `+geofenceColumns+` FROM geofences WHERE active = ? ORDER BY name, id`, true)
	return out, err
}

// Delete removes a geofence with its states and events.
func (s *Store) Delete(ctx context.Context, id string) error {
	for _, q := range []string{
		`DELETE FROM geofence_events WHERE geofence_id = ?`,
		`DELETE FROM geofence_states WHERE geofence_id = ?`,
	} {
		if _, err := storage.Exec(ctx, s.q, "delete_geofence_children", q, id); err != nil {
			return err
		}
	}
	return storage.ExecOne(ctx, s.q, "delete_geofence", "geofence", id, `DELETE FROM geofences WHERE id = ?`, id)
}

// State is the last known position of an asset relative to a geofence.
type State struct {
	AssetID    string    `db:"asset_id"`
	GeofenceID string    `db:"geofence_id"`
	Inside     bool      `db:"inside"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// States returns the known states of an asset keyed by geofence id.
func (s *Store) States(ctx context.Context, assetID string) (map[string]State, error) {
	var rows []State
	if err := storage.Select(ctx, s.q, "list_geofence_states", &rows,
		`SELECT asset_id, geofence_id, inside, updated_at FROM geofence_states WHERE asset_id = ?`, assetID); err != nil {
		return nil, err
	}
	out := make(map[string]State, len(rows))
	for _, r := range rows {
		out[r.GeofenceID] = r
	}
	return out, nil
}

// PutState inserts or replaces the state of an asset for a geofence.
func (s *Store) PutState(ctx context.Context, st State) error {
	_, err := storage.Exec(ctx, s.q, "put_geofence_state",
		`INSERT INTO geofence_states (asset_id, geofence_id, inside, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (asset_id, geofence_id) DO UPDATE SET inside = excluded.inside, updated_at = excluded.updated_at`,
		st.AssetID, st.GeofenceID, st.Inside, st.UpdatedAt)
	return err
}

// InsertEvent records a transition.
func (s *Store) InsertEvent(ctx context.Context, e *Event) error {
	_, err := storage.Exec(ctx, s.q, "insert_geofence_event",
		`INSERT INTO geofence_events (id, geofence_id, asset_id, event_type, lat, lng, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GeofenceID, e.AssetID, e.EventType, e.Lat, e.Lng, e.OccurredAt)
	return err
}

// Events returns events matching f, newest first.
func (s *Store) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	var w storage.Where
	if f.GeofenceID != "" {
		w.Add("geofence_id = ?", f.GeofenceID)
	}
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	if !f.From.IsZero() {
		w.Add("occurred_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		w.Add("occurred_at < ?", f.To.UTC())
	}

	out := []Event{}
	err := storage.Select(ctx, s.q, "list_geofence_events", &out,
		`SELECT id, geofence_id, asset_id, event_type, lat, lng, occurred_at FROM geofence_events`+
			w.SQL()+` ORDER BY occurred_at DESC, id`+f.Page.SQL(), w.Args()...)
	return out, err
}
