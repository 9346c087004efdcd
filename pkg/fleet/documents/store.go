package documents

import (
	"context"
	"time"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const documentColumns = `id, entity_type, entity_id, filename, content_type, size_bytes, sha256, storage_key,
	uploaded_by, expires_at, created_at`

// Store persists document metadata.
type Store struct {
	q sqlx.ExtContext
}

// NewStore creates a Store on db.
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{q: db}
}

// Insert stores document metadata.
func (s *Store) Insert(ctx context.Context, d *Document) error {
	_, err := storage.Exec(ctx, s.q, "insert_document",
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.EntityType, d.EntityID, d.Filename, d.ContentType, d.SizeBytes, d.SHA256, d.StorageKey,
		d.UploadedBy, d.ExpiresAt, d.CreatedAt)
	return err
}

// Get returns the document with id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	var d Document
	if err := storage.Get(ctx, s.q, "get_document", &d,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByEntity returns the documents attached to an entity, newest first.
func (s *Store) ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]Document, error) {
	out := []Document{}
	err := storage.Select(ctx, s.q, "list_documents", &out,
		`SELECT `+documentColumns+` FROM documents WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, id`, entityType, entityID)
	return out, err
}

// ListExpiringBefore returns documents with an expiry at or before cutoff,
// soonest first.
func (s *Store) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]Document, error) {
	out := []Document{}
	err := storage.Select(ctx, s.q, "list_expiring_documents", &out,
		`SELECT `+documentColumns+` FROM documents WHERE expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at, id`, cutoff.UTC())
	return out, err
}

// Delete removes document metadata.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_document", "document", id, `DELETE FROM documents WHERE id = ?`, id)
}

// EntityExists reports whether the entity a document is attached to exists.
func (s *Store) EntityExists(ctx context.Context, t EntityType, id string) (bool, error) {
	var n int
	err := storage.Get(ctx, s.q, "find_document_entity", &n,
		`SELECT COUNT(*) FROM `+entityTables[t]+` WHERE id = ?`, id)
	return n > 0, err
}
