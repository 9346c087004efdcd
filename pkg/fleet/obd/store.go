package obd

import (
	"context"
	"strings"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const eventColumns = `id, asset_id, code, dtc_system, description, odometer, work_order_id, recorded_at`

// Store persists trouble code events.
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

// Insert stores an event.
func (s *Store) Insert(ctx context.Context, e *Event) error {
	_, err := storage.Exec(ctx, s.q, "insert_dtc_event",
		`INSERT INTO dtc_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AssetID, e.Code, e.System, e.Description, e.Odometer, e.WorkOrderID, e.RecordedAt)
	return err
}

// List returns events matching f, most recent first.
func (s *Store) List(ctx context.Context, f Filter) ([]Event, error) {
	var w storage.Where
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	if f.Code != "" {
		w.Add("code = ?", strings.ToUpper(f.Code))
	}
	if !f.From.IsZero() {
		w.Add("recorded_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		w.Add("recorded_at < ?", f.To.UTC())
	}
	out := []Event{}
	err := storage.Select(ctx, s.q, "list_dtc_events", &out,
		`SELECT `+eventColumns+` FROM dtc_events`+w.SQL()+` ORDER BY recorded_at DESC, code`+f.Page.SQL(), w.Args()...)
	return out, err
}
