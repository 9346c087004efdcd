package assets

import (
	"context"
	"time"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const assetColumns = `id, asset_tag, name, asset_type, make, model, year, vin, license_plate,
	status, odometer, engine_hours, notes, created_at, updated_at`

// openWorkOrderStatuses lists the work order states that block deletion.
const openWorkOrderStatuses = `('open', 'in_progress', 'on_hold')`

// Store persists assets.
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

// Insert stores a new asset.
func (s *Store) Insert(ctx context.Context, a *Asset) error {
	_, err := storage.Exec(ctx, s.q, "insert_asset",
		`INSERT INTO assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AssetTag, a.Name, a.Type, a.Make, a.Model, a.Year, a.VIN, a.LicensePlate,
		a.Status, a.Odometer, a.EngineHours, a.Notes, a.CreatedAt, a.UpdatedAt)
	return err
}

// Get returns the asset with id.
func (s *Store) Get(ctx context.Context, id string) (*Asset, error) {
	var a Asset
	if err := storage.Get(ctx, s.q, "get_asset", &a, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns assets matching f ordered by asset tag. When paged is false
// f.Page is ignored and every match is returned.
func (s *Store) List(ctx context.Context, f Filter, paged bool) ([]Asset, error) {
	var w storage.Where
	if f.Status != "" {
		w.Add("status = ?", f.Status)
	}
	if f.Type != "" {
		w.Add("asset_type = ?", f.Type)
	}
	if f.Search != "" {
		like := storage.Like(f.Search)
		w.Add(`(LOWER(asset_tag) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\' OR LOWER(vin) LIKE ? ESCAPE '\')`, like, like, like)
	}

	query := `SELECT ` + assetColumns + ` FROM assets` + w.SQL() + ` ORDER BY asset_tag`
	if paged {
		query += f.Page.SQL()
	}

	out := []Asset{}
	err := storage.Select(ctx, s.q, "list_assets", &out, query, w.Args()...)
	return out, err
}

// Update writes every mutable column of a.
func (s *Store) Update(ctx context.Context, a *Asset) error {
	return storage.ExecOne(ctx, s.q, "update_asset", "asset", a.ID,
		`UPDATE assets SET asset_tag = ?, name = ?, asset_type = ?, make = ?, model = ?, year = ?, vin = ?,
			license_plate = ?, status = ?, odometer = ?, engine_hours = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		a.AssetTag, a.Name, a.Type, a.Make, a.Model, a.Year, a.VIN,
		a.LicensePlate, a.Status, a.Odometer, a.EngineHours, a.Notes, a.UpdatedAt, a.ID)
}

// Delete removes the asset with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_asset", "asset", id, `DELETE FROM assets WHERE id = ?`, id)
}

// SetStatus changes the status of an asset.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	return storage.ExecOne(ctx, s.q, "set_asset_status", "asset", id,
		`UPDATE assets SET status = ?, updated_at = ? WHERE id = ?`, status, storage.Now(), id)
}

// RaiseOdometer sets the odometer to reading when reading is higher than
// the stored value. It reports whether the row changed.
func (s *Store) RaiseOdometer(ctx context.Context, id string, reading float64) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "raise_odometer",
		`UPDATE assets SET odometer = ?, updated_at = ? WHERE id = ? AND odometer < ?`,
		reading, storage.Now(), id, reading)
	return n > 0, err
}

// CountOpenWorkOrders returns the number of unfinished work orders on the
// asset.
func (s *Store) CountOpenWorkOrders(ctx context.Context, id string) (int, error) {
	var n int
	err := storage.Get(ctx, s.q, "count_open_work_orders", &n,
		`SELECT COUNT(*) FROM work_orders WHERE asset_id = ? AND status IN `+openWorkOrderStatuses, id)
	return n, err
}

// Location is a position report for an asset.
type Location struct {
	ID         string    `db:"id" json:"id"`
	AssetID    string    `db:"asset_id" json:"asset_id"`
	Lat        float64   `db:"lat" json:"lat"`
	Lng        float64   `db:"lng" json:"lng"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// InsertLocation stores a position report.
func (s *Store) InsertLocation(ctx context.Context, l *Location) error {
	_, err := storage.Exec(ctx, s.q, "insert_location",
		`INSERT INTO asset_locations (id, asset_id, lat, lng, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.AssetID, l.Lat, l.Lng, l.RecordedAt)
	return err
}

// ListLocations returns the newest position reports of an asset first.
func (s *Store) ListLocations(ctx context.Context, assetID string, page storage.Page) ([]Location, error) {
	out := []Location{}
	err := storage.Select(ctx, s.q, "list_locations", &out,
		`SELECT id, asset_id, lat, lng, recorded_at FROM asset_locations
		WHERE asset_id = ? ORDER BY recorded_at DESC`+page.SQL(), assetID)
	return out, err
}
