package health

import (
	"context"
	"fmt"
	"os"
)

// Pinger is implemented by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatabaseCheck reports whether the database answers a ping.
func DatabaseCheck(db Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

// DirectoryCheck reports whether dir exists and is a directory. It guards
// the document blob store root.
func DirectoryCheck(dir string) CheckFunc {
	return func(context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
}
