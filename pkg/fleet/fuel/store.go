package fuel

import (
	"context"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const entryColumns = `id, asset_id, filled_at, quantity, unit, total_cost, odometer, vendor, full_tank,
	created_by, created_at`

// Store persists fuel entries.
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

// Insert stores a fuel entry.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	_, err := storage.Exec(ctx, s.q, "insert_fuel_entry",
		`INSERT INTO fuel_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AssetID, e.FilledAt, e.Quantity, e.Unit, e.TotalCost, e.Odometer, e.Vendor, e.FullTank,
		e.CreatedBy, e.CreatedAt)
	return err
}

// Get returns the fuel entry with id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	if err := storage.Get(ctx, s.q, "get_fuel_entry", &e,
		`SELECT `+entryColumns+` FROM fuel_entries WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes a fuel entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_fuel_entry", "fuel_entry", id,
		`DELETE FROM fuel_entries WHERE id = ?`, id)
}

// List returns entries matching f, newest fill first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	w := where(f)
	out := []Entry{}
	err := storage.Select(ctx, s.q, "list_fuel_entries", &out,
		`SELECT `+entryColumns+` FROM fuel_entries`+w.SQL()+` ORDER BY filled_at DESC, id`+f.Page.SQL(), w.Args()...)
	return out, err
}

// History returns every entry matching f in fill order.
func (s *Store) History(ctx context.Context, f Filter) ([]Entry, error) {
	w := where(f)
	out := []Entry{}
	err := storage.Select(ctx, s.q, "fuel_history", &out,
		`SELECT `+entryColumns+` FROM fuel_entries`+w.SQL()+` ORDER BY filled_at, odometer, id`, w.Args()...)
	return out, err
}

func where(f Filter) *storage.Where {
	var w storage.Where
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	if !f.From.IsZero() {
		w.Add("filled_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		w.Add("filled_at < ?", f.To.UTC())
	}
	return &w
}
