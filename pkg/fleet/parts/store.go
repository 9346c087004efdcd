package parts

import (
	"context"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const partColumns = `id, part_number, name, description, category, unit_cost, quantity_on_hand,
	reorder_point, bin_location, vendor, created_at, updated_at`

// Store persists parts and their stock movements.
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

// Insert stores a new part.
func (s *Store) Insert(ctx context.Context, p *Part) error {
	_, err := storage.Exec(ctx, s.q, "insert_part",
		`INSERT INTO parts (`+partColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PartNumber, p.Name, p.Description, p.Category, p.UnitCost, p.QuantityOnHand,
		p.ReorderPoint, p.BinLocation, p.Vendor, p.CreatedAt, p.UpdatedAt)
	return err
}

// Get returns the part with id.
func (s *Store) Get(ctx context.Context, id string) (*Part, error) {
	var p Part
	if err := storage.Get(ctx, s.q, "get_part", &p, `SELECT `+partColumns+` FROM parts WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns parts matching f ordered by part number.
func (s *Store) List(ctx context.Context, f Filter) ([]Part, error) {
	var w storage.Where
	if f.Category != "" {
		w.Add("category = ?", f.Category)
	}
	if f.Search != "" {
		like := storage.Like(f.Search)
		w.Add(`(LOWER(part_number) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`, like, like)
	}

	out := []Part{}
	err := storage.Select(ctx, s.q, "list_parts", &out,
		`SELECT `+partColumns+` FROM parts`+w.SQL()+` ORDER BY part_number`+f.Page.SQL(), w.Args()...)
	return out, err
}

// ListLowStock returns parts at or below their reorder point.
func (s *Store) ListLowStock(ctx context.Context) ([]Part, error) {
	out := []Part{}
	err := storage.Select(ctx, s.q, "list_low_stock", &out,
		`SELECT `+partColumns+` FROM parts WHERE quantity_on_hand <= reorder_point ORDER BY part_number`)
	return out, err
}

// Update writes the descriptive columns of p. quantity_on_hand is not
// touched.
func (s *Store) Update(ctx context.Context, p *Part) error {
	return storage.ExecOne(ctx, s.q, "update_part", "part", p.ID,
		`UPDATE parts SET part_number = ?, name = ?, description = ?, category = ?, unit_cost = ?,
			reorder_point = ?, bin_location = ?, vendor = ?, updated_at = ?
		WHERE id = ?`,
		p.PartNumber, p.Name, p.Description, p.Category, p.UnitCost,
		p.ReorderPoint, p.BinLocation, p.Vendor, p.UpdatedAt, p.ID)
}

// Delete removes the part with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_part", "part", id, `DELETE FROM parts WHERE id = ?`, id)
}

// ApplyDelta changes quantity_on_hand by delta unless the result would be
// negative. It reports whether the row was changed.
func (s *Store) ApplyDelta(ctx context.Context, id string, delta int) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "apply_stock_delta",
		`UPDATE parts SET quantity_on_hand = quantity_on_hand + ?, updated_at = ?
		WHERE id = ? AND quantity_on_hand + ? >= 0`,
		delta, storage.Now(), id, delta)
	return n > 0, err
}

// InsertTransaction records a stock movement.
func (s *Store) InsertTransaction(ctx context.Context, t *Transaction) error {
	_, err := storage.Exec(ctx, s.q, "insert_inventory_transaction",
		`INSERT INTO inventory_transactions (id, part_id, delta, reason, work_order_id, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PartID, t.Delta, t.Reason, t.WorkOrderID, t.ActorID, t.CreatedAt)
	return err
}

// ListTransactions returns the stock movements of a part, newest first.
func (s *Store) ListTransactions(ctx context.Context, partID string, page storage.Page) ([]Transaction, error) {
	out := []Transaction{}
	err := storage.Select(ctx, s.q, "list_inventory_transactions", &out,
		`SELECT id, part_id, delta, reason, work_order_id, actor_id, created_at
		FROM inventory_transactions WHERE part_id = ? ORDER BY created_at DESC, id`+page.SQL(), partID)
	return out, err
}
