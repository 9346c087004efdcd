package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError maps err to a status and writes the error envelope. Server
// errors are logged with the request context; client errors are not.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := HandleError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
		)
	}
	WriteErrorResponse(w, status, resp)
}

// WriteErrorResponse writes a prepared error envelope.
func WriteErrorResponse(w http.ResponseWriter, status int, resp *ErrorResponse) {
	WriteJSON(w, status, resp)
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List is the envelope of collection responses.
type List[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
