package audit

import (
	"context"
	"time"

	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"
)

// Entry is one row of the audit log.
type Entry struct {
	ID         string                       `db:"id" json:"id"`
	ActorID    string                       `db:"actor_id" json:"actor_id"`
	ActorType  identity.ActorType           `db:"actor_type" json:"actor_type"`
	Action     string                       `db:"action" json:"action"`
	EntityType string                       `db:"entity_type" json:"entity_type"`
	EntityID   string                       `db:"entity_id" json:"entity_id"`
	Changes    storage.JSON[map[string]any] `db:"changes" json:"changes"`
	RequestID  string                       `db:"request_id" json:"request_id,omitempty"`
	IPAddress  string                       `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time                    `db:"created_at" json:"created_at"`
}

// Actions recorded by depot services.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionLogin    = "login"
	ActionStatus   = "status_change"
	ActionPublish  = "publish"
	ActionSubmit   = "submit"
	ActionAdjust   = "stock_adjust"
	ActionUpload   = "upload"
	ActionGenerate = "generate"
	ActionIngest   = "ingest"
)

// Filter selects audit entries. Zero fields do not filter.
type Filter struct {
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	From       time.Time
	To         time.Time
	Page       storage.Page
}

// Auditor records audit entries. *Recorder implements it; services depend on
// this interface so tests can capture entries in memory.
type Auditor interface {
	Record(ctx context.Context, e Entry) error
}

// New builds an entry for action on an entity with an optional change set.
func New(action, entityType, entityID string, changes map[string]any) Entry {
	return Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    storage.NewJSON(changes),
	}
}
