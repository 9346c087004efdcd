package inspections

import (
	"context"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const inspectionColumns = `id, asset_id, inspector_id, kind, odometer, items, result, notes,
	form_submission_id, work_order_id, created_at`

// Store persists inspections.
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

// Insert stores an inspection.
func (s *Store) Insert(ctx context.Context, in *Inspection) error {
	_, err := storage.Exec(ctx, s.q, "insert_inspection",
		`INSERT INTO inspections (`+inspectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.AssetID, in.InspectorID, in.Kind, in.Odometer, in.Items, in.Result, in.Notes,
		in.FormSubmissionID, in.WorkOrderID, in.CreatedAt)
	return err
}

// SetWorkOrder links the follow-up work order.
func (s *Store) SetWorkOrder(ctx context.Context, id, workOrderID string) error {
	return storage.ExecOne(ctx, s.q, "set_inspection_work_order", "inspection", id,
		`UPDATE inspections SET work_order_id = ? WHERE id = ?`, workOrderID, id)
}

// Get returns the inspection with id.
func (s *Store) Get(ctx context.Context, id string) (*Inspection, error) {
	var in Inspection
	if err := storage.Get(ctx, s.q, "get_inspection", &in,
		`SELECT `+inspectionColumns+` FROM inspections WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &in, nil
}

// List returns inspections matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Inspection, error) {
	var w storage.Where
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	if f.Kind != "" {
		w.Add("kind = ?", f.Kind)
	}
	if f.Result != "" {
		w.Add("result = ?", f.Result)
	}

	out := []Inspection{}
	err := storage.Select(ctx, s.q, "list_inspections", &out,
		`SELECT `+inspectionColumns+` FROM inspections`+w.SQL()+` ORDER BY created_at DESC, id`+f.Page.SQL(),
		w.Args()...)
	return out, err
}

// SubmissionExists reports whether a custom form submission exists.
func (s *Store) SubmissionExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := storage.Get(ctx, s.q, "find_form_submission", &n,
		`SELECT COUNT(*) FROM form_submissions WHERE id = ?`, id)
	return n > 0, err
}
