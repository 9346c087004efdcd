package maintenance

import (
	"context"
	"time"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const scheduleColumns = `id, asset_id, name, title, description, priority, interval_days, interval_miles,
	interval_hours, last_completed_at, last_odometer, last_engine_hours, open_work_order_id, active,
	created_at, updated_at`

// Store persists maintenance schedules.
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

// Insert stores a new schedule.
func (s *Store) Insert(ctx context.Context, sc *Schedule) error {
	_, err := storage.Exec(ctx, s.q, "insert_schedule",
		`INSERT INTO maintenance_schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.AssetID, sc.Name, sc.Title, sc.Description, sc.Priority, sc.IntervalDays, sc.IntervalMiles,
		sc.IntervalHours, sc.LastCompletedAt, sc.LastOdometer, sc.LastEngineHours, sc.OpenWorkOrderID, sc.Active,
		sc.CreatedAt, sc.UpdatedAt)
	return err
}

// Get returns the schedule with id.
func (s *Store) Get(ctx context.Context, id string) (*Schedule, error) {
	var sc Schedule
	if err := storage.Get(ctx, s.q, "get_schedule", &sc,
		`SELECT `+scheduleColumns+` FROM maintenance_schedules WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &sc, nil
}

// List returns schedules matching f.
func (s *Store) List(ctx context.Context, f Filter) ([]Schedule, error) {
	var w storage.Where
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	if f.ActiveOnly {
		w.Add("active = ?", true)
	}
	out := []Schedule{}
	err := storage.Select(ctx, s.q, "list_schedules", &out,
		`SELECT `+scheduleColumns+` FROM maintenance_schedules`+w.SQL()+` ORDER BY asset_id, name, id`+f.Page.SQL(),
		w.Args()...)
	return out, err
}

// ListCandidates returns active schedules with no open work order.
func (s *Store) ListCandidates(ctx context.Context) ([]Schedule, error) {
	out := []Schedule{}
	err := storage.Select(ctx, s.q, "list_schedule_candidates", &out,
		`SELECT `+scheduleColumns+` FROM maintenance_schedules
		WHERE active = ? AND open_work_order_id = '' ORDER BY created_at, id`, true)
	return out, err
}

// Update writes the editable fields of sc.
func (s *Store) Update(ctx context.Context, sc *Schedule) error {
	return storage.ExecOne(ctx, s.q, "update_schedule", "maintenance schedule", sc.ID,
		`UPDATE maintenance_schedules SET name = ?, title = ?, description = ?, priority = ?, interval_days = ?,
		interval_miles = ?, interval_hours = ?, active = ?, updated_at = ? WHERE id = ?`,
		sc.Name, sc.Title, sc.Description, sc.Priority, sc.IntervalDays,
		sc.IntervalMiles, sc.IntervalHours, sc.Active, sc.UpdatedAt, sc.ID)
}

// Delete removes a schedule.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_schedule", "maintenance schedule", id,
		`DELETE FROM maintenance_schedules WHERE id = ?`, id)
}

// ClaimOpenWorkOrder links a generated work order to a schedule that has
// none. It reports false when another run got there first.
func (s *Store) ClaimOpenWorkOrder(ctx context.Context, id, workOrderID string) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "claim_schedule",
		`UPDATE maintenance_schedules SET open_work_order_id = ?, updated_at = ?
		WHERE id = ? AND open_work_order_id = ''`, workOrderID, storage.Now(), id)
	return n == 1, err
}

// Reset records a completed service on the schedules linked to workOrderID.
func (s *Store) Reset(ctx context.Context, workOrderID string, at time.Time, odometer, engineHours float64) (int64, error) {
	return storage.Exec(ctx, s.q, "reset_schedule",
		`UPDATE maintenance_schedules SET last_completed_at = ?, last_odometer = ?, last_engine_hours = ?,
		open_work_order_id = '', updated_at = ? WHERE open_work_order_id = ?`,
		at, odometer, engineHours, storage.Now(), workOrderID)
}

// Release unlinks workOrderID without recording a service.
func (s *Store) Release(ctx context.Context, workOrderID string) (int64, error) {
	return storage.Exec(ctx, s.q, "release_schedule",
		`UPDATE maintenance_schedules SET open_work_order_id = '', updated_at = ? WHERE open_work_order_id = ?`,
		storage.Now(), workOrderID)
}
