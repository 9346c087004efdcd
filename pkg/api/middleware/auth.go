package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/telemetry/logging"
)

// Authenticator resolves the actor of a request. *auth.Service implements
// it.
type Authenticator interface {
	Authenticate(r *http.Request) (identity.Actor, error)
}

// Authenticate rejects requests without valid credentials and stores the
// actor in the context of the others.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.Authenticate(r)
			if err != nil {
				slog.WarnContext(r.Context(), "authentication failed",
					"error", err,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				httpx.WriteError(w, r, err)
				return
			}

			ctx := identity.WithActor(r.Context(), actor)
			ctx = logging.WithActorID(ctx, actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects actors whose role is below min.
func RequireRole(min identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := identity.FromContext(r.Context())
			if !ok {
				httpx.WriteError(w, r, apperr.ErrUnauthorized)
				return
			}
			if !actor.Role.AtLeast(min) {
				httpx.WriteError(w, r, fmt.Errorf("role %s or higher required: %w", min, apperr.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
