package audit

import (
	"context"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// Store persists audit entries. There is no update or delete path.
type Store struct {
	q        sqlx.ExtContext
	maxLimit int
}

// DefaultQueryMaxLimit caps Query pages unless SetMaxLimit is called.
const DefaultQueryMaxLimit = 1000

// NewStore creates a Store on db.
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{q: db, maxLimit: DefaultQueryMaxLimit}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *sqlx.Tx) *Store {
	return &Store{q: tx, maxLimit: s.maxLimit}
}

// SetMaxLimit changes the largest page Query returns. n <= 0 is ignored.
func (s *Store) SetMaxLimit(n int) {
	if n > 0 {
		s.maxLimit = n
	}
}

// MaxLimit returns the largest page Query returns.
func (s *Store) MaxLimit() int {
	return s.maxLimit
}

// Insert writes one entry.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	_, err := storage.Exec(ctx, s.q, "insert_audit_entry", `
		INSERT INTO audit_log (id, actor_id, actor_type, action, entity_type, entity_id,
			changes, request_id, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActorID, e.ActorType, e.Action, e.EntityType, e.EntityID,
		e.Changes, e.RequestID, e.IPAddress, e.CreatedAt,
	)
	return err
}

// Query returns entries matching filter, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var w storage.Where
	if f.ActorID != "" {
		w.Add("actor_id = ?", f.ActorID)
	}
	if f.EntityType != "" {
		w.Add("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		w.Add("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		w.Add("action = ?", f.Action)
	}
	if !f.From.IsZero() {
		w.Add("created_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		w.Add("created_at < ?", f.To.UTC())
	}

	entries := []Entry{}
	err := storage.Select(ctx, s.q, "query_audit_log", &entries,
		`SELECT id, actor_id, actor_type, action, entity_type, entity_id, changes,
			request_id, ip_address, created_at
		 FROM audit_log`+w.SQL()+` ORDER BY created_at DESC, id`+f.Page.Clause(storage.DefaultPageLimit, s.maxLimit),
		w.Args()...)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
