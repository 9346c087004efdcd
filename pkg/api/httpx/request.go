package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetworks/depot/pkg/storage"
)

// DefaultMaxBodyBytes bounds JSON bodies when the caller passes no limit.
const DefaultMaxBodyBytes = 1 << 20

// Decode reads a JSON body into dst and validates it. Unknown fields are
// rejected. maxBytes <= 0 uses DefaultMaxBodyBytes.
func Decode(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &RequestError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    CodeRequestTooLarge,
				Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			}
		case errors.Is(err, io.EOF):
			return &RequestError{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: "request body is empty"}
		default:
			return &RequestError{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	}
	if dec.More() {
		return &RequestError{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: "request body must contain a single JSON value"}
	}
	return Validate(dst)
}

func invalidParam(name, msg string) error {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("query parameter %q %s", name, msg),
	}
}

// Page reads limit and offset query parameters.
func Page(r *http.Request, def, max int) (storage.Page, error) {
	q := r.URL.Query()
	var p storage.Page
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, invalidParam("limit", "must be a positive integer")
		}
		p.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return p, invalidParam("offset", "must be a non-negative integer")
		}
		p.Offset = n
	}
	return p.Normalize(def, max), nil
}

// Time reads an RFC 3339 timestamp or a YYYY-MM-DD date query parameter.
// A missing parameter yields the zero time.
func Time(r *http.Request, name string) (time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, invalidParam(name, "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

// Int reads an integer query parameter, returning def when it is missing.
func Int(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalidParam(name, "must be an integer")
	}
	return n, nil
}

// Bool reads a boolean query parameter, returning def when it is missing.
func Bool(r *http.Request, name string, def bool) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, invalidParam(name, "must be true or false")
	}
	return b, nil
}
