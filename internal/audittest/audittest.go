// Package audittest provides an in-memory audit.Auditor for tests.
package audittest

import (
	"context"
	"sync"

	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/identity"
)

// Recorder captures audit entries in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

// Record stores e with the actor taken from ctx.
func (r *Recorder) Record(ctx context.Context, e audit.Entry) error {
	actor := identity.ActorOrSystem(ctx)
	e.ActorID = actor.ID
	e.ActorType = actor.Type

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

// Actions returns the recorded actions for entityType in order.
func (r *Recorder) Actions(entityType string) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.EntityType == entityType {
			out = append(out, e.Action)
		}
	}
	return out
}
