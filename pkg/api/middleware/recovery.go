package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/telemetry/logging"
)

// Recovery turns a panic in a handler into a 500 response and logs the
// stack trace. Internal details never reach the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", rec,
				"request_id", logging.GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			httpx.WriteErrorResponse(w, http.StatusInternalServerError, httpx.NewErrorResponse(
				httpx.ErrorTypeServerError,
				"An internal error occurred. Please try again later.",
				httpx.CodeInternalError,
			))
		}()

		next.ServeHTTP(w, r)
	})
}
