package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/logging"
)

type memoryWriter struct {
	mu      sync.Mutex
	entries []*Entry
	err     error
	block   chan struct{}
}

func (m *memoryWriter) Insert(ctx context.Context, e *Entry) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestRecorder_StampsContextMetadata(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(w, Config{AsyncBuffer: 10}, nil)

	ctx := identity.WithActor(context.Background(), identity.Actor{ID: "u1", Type: identity.ActorUser, Role: identity.RoleAdmin})
	ctx = identity.WithClientIP(ctx, "10.1.2.3")
	ctx = logging.WithRequestID(ctx, "req-9")

	err := r.Record(ctx, New(ActionCreate, "user", "u2", map[string]any{
		"email":    "new@example.com",
		"password": "plaintext",
	}))
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	if w.count() != 1 {
		t.Fatalf("wrote %d entries, want 1", w.count())
	}
	e := w.entries[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("entry id and created_at should be set")
	}
	if e.ActorID != "u1" || e.ActorType != identity.ActorUser {
		t.Errorf("actor = %s/%s, want u1/user", e.ActorID, e.ActorType)
	}
	if e.RequestID != "req-9" || e.IPAddress != "10.1.2.3" {
		t.Errorf("request metadata = %q %q", e.RequestID, e.IPAddress)
	}
	if e.Changes.V["password"] != logging.RedactedValue {
		t.Errorf("password should be redacted, got %v", e.Changes.V["password"])
	}
}

func TestRecorder_SystemActorWithoutContext(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(w, Config{AsyncBuffer: 1}, nil)
	_ = r.Record(context.Background(), New(ActionGenerate, "work_order", "wo1", nil))
	r.Close()

	if w.entries[0].ActorType != identity.ActorSystem {
		t.Errorf("actor type = %s, want system", w.entries[0].ActorType)
	}
}

func TestRecorder_FullBufferWritesSynchronously(t *testing.T) {
	w := &memoryWriter{block: make(chan struct{})}
	r := NewRecorder(w, Config{AsyncBuffer: 1, WriteTimeout: time.Second}, nil)

	// The worker takes the first entry and blocks in Insert, the second
	// fills the buffer, the third must not be dropped.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			_ = r.Record(context.Background(), New(ActionUpdate, "asset", "a1", nil))
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(w.block)
	<-done
	r.Close()

	if got := w.count(); got != 3 {
		t.Errorf("wrote %d entries, want 3", got)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(w, Config{AsyncBuffer: 4}, nil)
	r.Close()
	r.Close()

	if err := r.Record(context.Background(), New(ActionDelete, "part", "p1", nil)); err != nil {
		t.Fatalf("Record() after Close failed: %v", err)
	}
	if w.count() != 1 {
		t.Errorf("entry after Close should be written synchronously")
	}
}

func TestRecorder_WriteErrorReturnedWhenSynchronous(t *testing.T) {
	w := &memoryWriter{err: errors.New("disk full")}
	r := NewRecorder(w, Config{AsyncBuffer: 1}, nil)
	r.Close()

	if err := r.Record(context.Background(), New(ActionDelete, "part", "p1", nil)); err == nil {
		t.Error("expected synchronous write error")
	}
}

func TestStore_InsertAndQuery(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "e1", ActorID: "u1", ActorType: identity.ActorUser, Action: ActionCreate, EntityType: "asset", EntityID: "a1", CreatedAt: base},
		{ID: "e2", ActorID: "u1", ActorType: identity.ActorUser, Action: ActionUpdate, EntityType: "asset", EntityID: "a1", CreatedAt: base.Add(time.Hour),
			Changes: storage.NewJSON(map[string]any{"name": "Truck 7"})},
		{ID: "e3", ActorID: "k1", ActorType: identity.ActorAPIKey, Action: ActionCreate, EntityType: "part", EntityID: "p1", CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range entries {
		if err := store.Insert(ctx, &entries[i]); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"all newest first", Filter{}, []string{"e3", "e2", "e1"}},
		{"by entity", Filter{EntityType: "asset", EntityID: "a1"}, []string{"e2", "e1"}},
		{"by actor", Filter{ActorID: "k1"}, []string{"e3"}},
		{"by action", Filter{Action: ActionUpdate}, []string{"e2"}},
		{"time range", Filter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)}, []string{"e2"}},
		{"paged", Filter{Page: storage.Page{Limit: 1, Offset: 1}}, []string{"e2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("entry %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	got, _ := store.Query(ctx, Filter{Action: ActionUpdate})
	if got[0].Changes.V["name"] != "Truck 7" {
		t.Errorf("changes round trip = %v", got[0].Changes.V)
	}

	store.SetMaxLimit(2)
	got, _ = store.Query(ctx, Filter{Page: storage.Page{Limit: 10}})
	if len(got) != 2 {
		t.Errorf("capped query returned %d entries, want 2", len(got))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	entries := []Entry{
		{ID: "e1", ActorID: "u1", ActorType: identity.ActorUser, Action: ActionCreate, EntityType: "asset", EntityID: "a1",
			Changes: storage.NewJSON(map[string]any{"name": "Van"}), CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if err := WriteCSV(context.Background(), &buf, entries); err != nil {
		t.Fatalf("WriteCSV() failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1][9] != `{"name":"Van"}` {
		t.Errorf("changes cell = %q", rows[1][9])
	}
	if rows[1][1] != "2025-01-01T00:00:00Z" {
		t.Errorf("created_at cell = %q", rows[1][1])
	}
}
