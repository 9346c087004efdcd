// Package audit records who changed what.
//
// Every mutating service call produces an Entry (actor, action, entity and a
// redacted change set). The Recorder persists entries on a background worker
// and falls back to a synchronous write when its buffer is full, so entries
// are never silently discarded. Entries are append-only.
package audit
