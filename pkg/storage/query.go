package storage

import (
	"context"
	"fmt"
	"strings"

	"fleetworks/depot/pkg/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NewID returns a new random primary key.
func NewID() string {
	return uuid.NewString()
}

// Get runs a single-row query written with ? placeholders and scans it into
// dest. A missing row yields an apperr.ErrNotFound error.
func Get(ctx context.Context, q sqlx.ExtContext, op string, dest any, query string, args ...any) error {
	return MapError(q.DriverName(), op, sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...))
}

// Select runs a multi-row query written with ? placeholders.
func Select(ctx context.Context, q sqlx.ExtContext, op string, dest any, query string, args ...any) error {
	return MapError(q.DriverName(), op, sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...))
}

// Exec runs a statement written with ? placeholders and returns the number of
// affected rows.
func Exec(ctx context.Context, q sqlx.ExtContext, op string, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, MapError(q.DriverName(), op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, MapError(q.DriverName(), op, err)
	}
	return n, nil
}

// ExecOne is Exec for statements that must touch exactly one row; zero rows
// yields an apperr.ErrNotFound error naming entity and id.
func ExecOne(ctx context.Context, q sqlx.ExtContext, op, entity, id string, query string, args ...any) error {
	n, err := Exec(ctx, q, op, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

// Where accumulates AND-ed filter clauses for list queries.
type Where struct {
	clauses []string
	args    []any
}

// Add appends clause with its placeholder arguments.
func (w *Where) Add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// SQL returns the WHERE clause, or "" when no filter was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the placeholder arguments in clause order.
func (w *Where) Args() []any {
	return w.args
}

// Page is a limit/offset window.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultPageLimit and MaxPageLimit bound list endpoints.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps the page to (0, max] with def as the default limit.
func (p Page) Normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// SQL renders the LIMIT/OFFSET clause of the page within the default
// bounds.
func (p Page) SQL() string {
	return p.Clause(DefaultPageLimit, MaxPageLimit)
}

// Clause renders the LIMIT/OFFSET clause of the page normalized to
// (0, max].
func (p Page) Clause(def, max int) string {
	p = p.Normalize(def, max)
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// Like wraps s for a case-insensitive substring match against a LOWER()ed
// column.
func Like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
