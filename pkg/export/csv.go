// Package export writes domain records as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Error represents an error during export.
type Error struct {
	Format      string // export format ("csv")
	RecordCount int    // records written before the failure
	Cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CSV writes a header followed by one row per record. row converts a record
// into its cells, in header order. The context is checked between rows so a
// client disconnect stops large exports.
func CSV[T any](ctx context.Context, w io.Writer, header []string, records []T, row func(T) []string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return &Error{Format: "csv", Cause: err}
	}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return &Error{Format: "csv", RecordCount: i, Cause: err}
		}
		cells := row(record)
		if len(cells) != len(header) {
			return &Error{Format: "csv", RecordCount: i, Cause: fmt.Errorf("row has %d cells, header has %d", len(cells), len(header))}
		}
		if err := writer.Write(cells); err != nil {
			return &Error{Format: "csv", RecordCount: i, Cause: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &Error{Format: "csv", RecordCount: len(records), Cause: err}
	}
	return nil
}

// Time formats t as RFC 3339 in UTC, or "" for the zero time.
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Float formats f without trailing zeros.
func Float(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Int formats an integer.
func Int[T ~int | ~int64](n T) string {
	return strconv.FormatInt(int64(n), 10)
}

// Bool formats b as "true" or "false".
func Bool(b bool) string {
	return strconv.FormatBool(b)
}
