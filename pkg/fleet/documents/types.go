package documents

import (
	"time"
)

// EntityType is the kind of record a document is attached to.
type EntityType string

const (
	EntityAsset      EntityType = "asset"
	EntityWorkOrder  EntityType = "work_order"
	EntityPart       EntityType = "part"
	EntityInspection EntityType = "inspection"
)

// entityTables maps attachable entity types to their tables.
var entityTables = map[EntityType]string{
	EntityAsset:      "assets",
	EntityWorkOrder:  "work_orders",
	EntityPart:       "parts",
	EntityInspection: "inspections",
}

// Valid reports whether documents can be attached to t.
func (t EntityType) Valid() bool {
	_, ok := entityTables[t]
	return ok
}

// Document is the metadata of an uploaded file.
type Document struct {
	ID          string     `db:"id" json:"id"`
	EntityType  EntityType `db:"entity_type" json:"entity_type"`
	EntityID    string     `db:"entity_id" json:"entity_id"`
	Filename    string     `db:"filename" json:"filename"`
	ContentType string     `db:"content_type" json:"content_type"`
	SizeBytes   int64      `db:"size_bytes" json:"size_bytes"`
	SHA256      string     `db:"sha256" json:"sha256"`
	StorageKey  string     `db:"storage_key" json:"-"`
	UploadedBy  string     `db:"uploaded_by" json:"uploaded_by"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// UploadInput describes an upload.
type UploadInput struct {
	EntityType  EntityType
	EntityID    string
	Filename    string
	ContentType string
	ExpiresAt   *time.Time
}
