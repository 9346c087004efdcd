package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fleetworks/depot/pkg/apperr"

	"github.com/jmoiron/sqlx"
)

// Migrate applies every migration that has not been recorded in
// schema_migrations. Each migration runs in its own transaction together with
// its bookkeeping row, so a failed migration leaves no partial record.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	return migrate(ctx, db, Migrations)
}

func migrate(ctx context.Context, db *sqlx.DB, migrations []Migration) error {
	logger := slog.Default().With("component", "storage.migrate")
	driver := db.DriverName()

	if _, err := db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return apperr.NewStorageError(driver, "create_schema_migrations", err)
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return apperr.NewStorageError(driver, fmt.Sprintf("migrate_%d_%s", m.Version, m.Name), err)
			}
			_, err := tx.ExecContext(ctx,
				tx.Rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`),
				m.Version, m.Name, Now())
			if err != nil {
				return apperr.NewStorageError(driver, "record_migration", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		logger.Info("migration applied", "version", m.Version, "name", m.Name)
	}

	return nil
}

// AppliedVersions returns the set of recorded migration versions.
func AppliedVersions(ctx context.Context, db sqlx.QueryerContext) (map[int]bool, error) {
	var versions []int
	if err := sqlx.SelectContext(ctx, db, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, apperr.NewStorageError("", "list_migrations", err)
	}

	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// Now returns the current time in UTC truncated to microseconds, the finest
// precision every supported driver stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
