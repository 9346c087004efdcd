package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores a Go value in a TEXT column as JSON.
type JSON[T any] struct {
	V T
}

// NewJSON wraps v for storage.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{V: v}
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and empty strings leave the zero value.
func (j *JSON[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}

	if len(data) == 0 {
		var zero T
		j.V = zero
		return nil
	}
	if err := json.Unmarshal(data, &j.V); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

// MarshalJSON encodes the wrapped value without the wrapper.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

// UnmarshalJSON decodes into the wrapped value.
func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.V)
}
