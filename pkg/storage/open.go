package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite3  = "sqlite3"  // github.com/mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"   // modernc.org/sqlite (pure Go)
	DriverPostgres = "postgres" // github.com/lib/pq
)

func init() {
	// sqlx does not know the modernc driver name; register its bindvar style
	// so Rebind treats it like sqlite3.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open opens and pings the database described by cfg. For SQLite drivers the
// WAL, busy timeout and foreign key pragmas are set through the DSN so that
// every pooled connection gets them.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	logger := slog.Default().With("component", "storage")

	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite3, DriverSQLite:
		if err := ensureParentDir(dsn); err != nil {
			return nil, apperr.NewStorageError(cfg.Driver, "open", err)
		}
		dsn = sqliteDSN(cfg)
	case DriverPostgres:
	default:
		return nil, apperr.NewStorageError(cfg.Driver, "open", fmt.Errorf("unsupported driver %q", cfg.Driver))
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, apperr.NewStorageError(cfg.Driver, "open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.NewStorageError(cfg.Driver, "ping", err)
	}

	logger.Info("database opened",
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return db, nil
}

func sqliteDSN(cfg config.DatabaseConfig) string {
	busy := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch cfg.Driver {
	case DriverSQLite3:
		params.Set("_foreign_keys", "on")
		params.Set("_busy_timeout", fmt.Sprint(busy))
		params.Set("_txlock", "immediate")
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	case DriverSQLite:
		params.Add("_pragma", "foreign_keys(1)")
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		params.Set("_txlock", "immediate")
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	}

	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	return cfg.DSN + sep + params.Encode()
}

func ensureParentDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
