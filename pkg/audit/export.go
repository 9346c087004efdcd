package audit

import (
	"context"
	"encoding/json"
	"io"

	"fleetworks/depot/pkg/export"
)

var csvHeader = []string{
	"id", "created_at", "actor_id", "actor_type", "action",
	"entity_type", "entity_id", "request_id", "ip_address", "changes",
}

// WriteCSV writes entries as CSV. The change set is embedded as JSON.
func WriteCSV(ctx context.Context, w io.Writer, entries []Entry) error {
	return export.CSV(ctx, w, csvHeader, entries, func(e Entry) []string {
		changes := ""
		if len(e.Changes.V) > 0 {
			b, _ := json.Marshal(e.Changes.V)
			changes = string(b)
		}
		return []string{
			e.ID, export.Time(e.CreatedAt), e.ActorID, string(e.ActorType), e.Action,
			e.EntityType, e.EntityID, e.RequestID, e.IPAddress, changes,
		}
	})
}
