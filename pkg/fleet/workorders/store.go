package workorders

import (
	"context"
	"fmt"
	"time"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const workOrderColumns = `id, number, asset_id, title, description, priority, status, assigned_to, due_date,
	source, source_ref, labor_hours, labor_rate, parts_cost, total_cost, completed_at, created_by,
	created_at, updated_at`

// sequenceName is the counter behind work order numbers.
const sequenceName = "work_order"

// FormatNumber renders a work order number from its sequence value.
func FormatNumber(n int64) string {
	return fmt.Sprintf("WO-%06d", n)
}

// Store persists work orders.
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

// NextNumber allocates the next work order number.
func (s *Store) NextNumber(ctx context.Context) (string, error) {
	n, err := storage.NextSequence(ctx, s.q, sequenceName)
	if err != nil {
		return "", err
	}
	return FormatNumber(n), nil
}

// Insert stores a new work order.
func (s *Store) Insert(ctx context.Context, wo *WorkOrder) error {
	_, err := storage.Exec(ctx, s.q, "insert_work_order",
		`INSERT INTO work_orders (`+workOrderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wo.ID, wo.Number, wo.AssetID, wo.Title, wo.Description, wo.Priority, wo.Status, wo.AssignedTo, wo.DueDate,
		wo.Source, wo.SourceRef, wo.LaborHours, wo.LaborRate, wo.PartsCost, wo.TotalCost, wo.CompletedAt, wo.CreatedBy,
		wo.CreatedAt, wo.UpdatedAt)
	return err
}

// Get returns the work order with id.
func (s *Store) Get(ctx context.Context, id string) (*WorkOrder, error) {
	var wo WorkOrder
	if err := storage.Get(ctx, s.q, "get_work_order", &wo,
		`SELECT `+workOrderColumns+` FROM work_orders WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &wo, nil
}

// List returns work orders matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]WorkOrder, error) {
	var w storage.Where
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	if f.Status != "" {
		w.Add("status = ?", f.Status)
	}
	if f.Priority != "" {
		w.Add("priority = ?", f.Priority)
	}
	if f.Source != "" {
		w.Add("source = ?", f.Source)
	}
	if f.AssignedTo != "" {
		w.Add("assigned_to = ?", f.AssignedTo)
	}

	out := []WorkOrder{}
	err := storage.Select(ctx, s.q, "list_work_orders", &out,
		`SELECT `+workOrderColumns+` FROM work_orders`+w.SQL()+` ORDER BY created_at DESC, number DESC`+f.Page.SQL(),
		w.Args()...)
	return out, err
}

// Update writes the editable columns of wo while the stored status is
// still wo.Status. Status and costs are owned by Transition and AddPart.
// It reports whether the row changed.
func (s *Store) Update(ctx context.Context, wo *WorkOrder) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "update_work_order",
		`UPDATE work_orders SET title = ?, description = ?, priority = ?, assigned_to = ?,
			due_date = ?, labor_hours = ?, labor_rate = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		wo.Title, wo.Description, wo.Priority, wo.AssignedTo,
		wo.DueDate, wo.LaborHours, wo.LaborRate, wo.UpdatedAt, wo.ID, wo.Status)
	return n > 0, err
}

// UpdateStatusFrom changes the status only when the stored status is still
// from. laborHours replaces the stored hours when non-nil. Completing
// computes total_cost from the stored costs and stamps completed_at. It
// reports whether the row changed.
func (s *Store) UpdateStatusFrom(ctx context.Context, id string, from, to Status, laborHours *float64, at time.Time) (bool, error) {
	var completedAt *time.Time
	if to == StatusCompleted {
		completedAt = &at
	}
	n, err := storage.Exec(ctx, s.q, "transition_work_order",
		`UPDATE work_orders SET status = ?, labor_hours = COALESCE(?, labor_hours),
			total_cost = CASE WHEN ? THEN ROUND((parts_cost + COALESCE(?, labor_hours) * labor_rate) * 100) / 100
				ELSE total_cost END,
			completed_at = COALESCE(?, completed_at), updated_at = ?
		WHERE id = ? AND status = ?`,
		to, laborHours, to == StatusCompleted, laborHours, completedAt, at, id, from)
	return n > 0, err
}

// Delete removes a work order.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_work_order", "work_order", id,
		`DELETE FROM work_orders WHERE id = ?`, id)
}

// InsertPart records a part consumed by a work order.
func (s *Store) InsertPart(ctx context.Context, u *PartUsage) error {
	_, err := storage.Exec(ctx, s.q, "insert_work_order_part",
		`INSERT INTO work_order_parts (id, work_order_id, part_id, quantity, unit_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.WorkOrderID, u.PartID, u.Quantity, u.UnitCost, u.CreatedAt)
	return err
}

// ListParts returns the parts consumed by a work order.
func (s *Store) ListParts(ctx context.Context, workOrderID string) ([]PartUsage, error) {
	out := []PartUsage{}
	err := storage.Select(ctx, s.q, "list_work_order_parts", &out,
		`SELECT id, work_order_id, part_id, quantity, unit_cost, created_at
		FROM work_order_parts WHERE work_order_id = ? ORDER BY created_at, id`, workOrderID)
	return out, err
}

// AddPartsCost increases parts_cost by amount unless the work order has
// been completed or cancelled. It reports whether the row changed.
func (s *Store) AddPartsCost(ctx context.Context, id string, amount float64) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "add_parts_cost",
		`UPDATE work_orders SET parts_cost = parts_cost + ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)`,
		amount, storage.Now(), id, StatusCompleted, StatusCancelled)
	return n > 0, err
}

// CountOpen returns the unfinished work orders on an asset matching an
// optional priority and source, excluding excludeID.
func (s *Store) CountOpen(ctx context.Context, assetID string, priority Priority, source Source, excludeID string) (int, error) {
	var w storage.Where
	w.Add("asset_id = ?", assetID)
	w.Add("status IN (?, ?, ?)", StatusOpen, StatusInProgress, StatusOnHold)
	if priority != "" {
		w.Add("priority = ?", priority)
	}
	if source != "" {
		w.Add("source = ?", source)
	}
	if excludeID != "" {
		w.Add("id <> ?", excludeID)
	}

	var n int
	err := storage.Get(ctx, s.q, "count_open_work_orders", &n, `SELECT COUNT(*) FROM work_orders`+w.SQL(), w.Args()...)
	return n, err
}

// FindOpen returns the first unfinished work order on an asset from source,
// or nil when there is none.
func (s *Store) FindOpen(ctx context.Context, assetID string, source Source) (*WorkOrder, error) {
	out := []WorkOrder{}
	err := storage.Select(ctx, s.q, "find_open_work_order", &out,
		`SELECT `+workOrderColumns+` FROM work_orders
		WHERE asset_id = ? AND source = ? AND status IN (?, ?, ?)
		ORDER BY created_at LIMIT 1`,
		assetID, source, StatusOpen, StatusInProgress, StatusOnHold)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}
