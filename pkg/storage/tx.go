package storage

import (
	"context"
	"fmt"

	"fleetworks/depot/pkg/apperr"

	"github.com/jmoiron/sqlx"
)

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics and committed otherwise.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.NewStorageError(db.DriverName(), "begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewStorageError(db.DriverName(), "commit", err)
	}
	return nil
}

// NextSequence atomically increments the named counter and returns the new
// value. Counters start at 1. Call it inside a transaction so the number is
// released if the surrounding work fails.
func NextSequence(ctx context.Context, q sqlx.ExtContext, name string) (int64, error) {
	_, err := q.ExecContext(ctx,
		q.Rebind(`INSERT INTO sequences (name, value) VALUES (?, 0) ON CONFLICT (name) DO NOTHING`),
		name)
	if err != nil {
		return 0, MapError(q.DriverName(), "init_sequence", err)
	}

	var value int64
	err = sqlx.GetContext(ctx, q, &value,
		q.Rebind(`UPDATE sequences SET value = value + 1 WHERE name = ? RETURNING value`),
		name)
	if err != nil {
		return 0, MapError(q.DriverName(), "next_sequence", err)
	}
	return value, nil
}
