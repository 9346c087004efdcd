package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

func TestMigrate_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}

	applied, err := storage.AppliedVersions(ctx, db)
	if err != nil {
		t.Fatalf("AppliedVersions() failed: %v", err)
	}
	for _, m := range storage.Migrations {
		if !applied[m.Version] {
			t.Errorf("migration %d (%s) not recorded", m.Version, m.Name)
		}
	}
	if len(applied) != len(storage.Migrations) {
		t.Errorf("recorded %d migrations, want %d", len(applied), len(storage.Migrations))
	}
}

func TestOpen_ModerncDriver(t *testing.T) {
	cfg := testutil.DatabaseConfig(t)
	cfg.Driver = storage.DriverSQLite

	db, err := storage.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() with modernc driver failed: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() with modernc driver failed: %v", err)
	}

	var fk int
	if err := db.Get(&fk, "PRAGMA foreign_keys"); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := testutil.DatabaseConfig(t)
	cfg.Driver = "oracle"

	_, err := storage.Open(context.Background(), cfg)
	var serr *apperr.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestNextSequence(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := storage.NextSequence(ctx, db, "work_orders")
		if err != nil {
			t.Fatalf("NextSequence() failed: %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	other, err := storage.NextSequence(ctx, db, "other")
	if err != nil {
		t.Fatal(err)
	}
	if other != 1 {
		t.Errorf("independent sequence = %d, want 1", other)
	}
}

func TestNextSequence_Concurrent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	const workers = 8
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := storage.WithTx(ctx, db, func(tx *sqlx.Tx) error {
				n, err := storage.NextSequence(ctx, tx, "wo")
				if err != nil {
					return err
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithTx() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers {
		t.Errorf("got %d distinct numbers, want %d: %v", len(seen), workers, seen)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := storage.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := storage.NextSequence(ctx, tx, "rolled_back"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() = %v, want boom", err)
	}

	n, err := storage.NextSequence(ctx, db, "rolled_back")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("sequence after rollback = %d, want 1", n)
	}
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = storage.WithTx(ctx, db, func(tx *sqlx.Tx) error {
			_, _ = storage.NextSequence(ctx, tx, "panicked")
			panic("handler bug")
		})
	}()

	n, err := storage.NextSequence(ctx, db, "panicked")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("sequence after panic = %d, want 1", n)
	}
}

func TestMapError_Constraints(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	insert := `INSERT INTO users (id, email, name, password_hash, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := storage.Now()

	if _, err := storage.Exec(ctx, db, "insert_user", insert, "u1", "a@example.com", "A", "x", "admin", true, now, now); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	_, err := storage.Exec(ctx, db, "insert_user", insert, "u2", "a@example.com", "B", "x", "admin", true, now, now)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate email error = %v, want ErrConflict", err)
	}

	_, err = storage.Exec(ctx, db, "insert_wo",
		`INSERT INTO work_orders (id, number, asset_id, title, priority, status, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"wo1", "WO-1", "missing-asset", "t", "low", "open", "manual", now, now)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("foreign key error = %v, want ErrConflict", err)
	}

	var email string
	err = storage.Get(ctx, db, "get_user", &email, `SELECT email FROM users WHERE id = ?`, "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing row error = %v, want ErrNotFound", err)
	}

	err = storage.ExecOne(ctx, db, "delete_user", "user", "nope", `DELETE FROM users WHERE id = ?`, "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ExecOne on missing row = %v, want ErrNotFound", err)
	}
}
