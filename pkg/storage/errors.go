package storage

import (
	"database/sql"
	"errors"

	"fleetworks/depot/pkg/apperr"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

type violation int

const (
	violationNone violation = iota
	violationUnique
	violationForeignKey
	violationCheck
)

// MapError translates a driver error into the apperr vocabulary:
// sql.ErrNoRows becomes ErrNotFound, constraint violations become
// ErrConflict, anything else is wrapped in a StorageError.
func MapError(driver, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("record", op)
	}

	switch classify(err) {
	case violationUnique:
		return apperr.Conflict("%s: duplicate value", op)
	case violationForeignKey:
		return apperr.Conflict("%s: referenced record is missing or still in use", op)
	case violationCheck:
		return apperr.Conflict("%s: constraint violated", op)
	}

	return apperr.NewStorageError(driver, op, err)
}

func classify(err error) violation {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		switch mattnErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return violationUnique
		case sqlite3.ErrConstraintForeignKey:
			return violationForeignKey
		case sqlite3.ErrConstraintCheck:
			return violationCheck
		}
		return violationNone
	}

	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		switch modernErr.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return violationUnique
		case sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return violationForeignKey
		case sqlitelib.SQLITE_CONSTRAINT_CHECK:
			return violationCheck
		}
		return violationNone
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return violationUnique
		case "23503":
			return violationForeignKey
		case "23514":
			return violationCheck
		}
	}

	return violationNone
}
