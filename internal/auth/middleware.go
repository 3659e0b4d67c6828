package auth

import (
	"context"
	"errors"
	"net/http"

	"socialapi/internal/httpx"
	"socialapi/internal/logging"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// IsLoggedIn admits requests whose bearer token passes the guard and
// attaches the caller's identity to the request context.
func IsLoggedIn(a Authenticator, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), httpx.TokenFrom(r))
			if err != nil {
				if errors.Is(err, ErrSessionStateUnavailable) {
					log.Error(r.Context(), "authentication unavailable", "error", err, "request_id", httpx.RequestIDFrom(r))
				}
				WriteError(w, r, err)
				return
			}

			ctx := httpx.ContextWithIdentity(r.Context(), httpx.Identity{UserID: p.UserID, Role: p.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HasRole admits requests whose identity satisfies role. It must run after
// IsLoggedIn; a request without identity is a wiring bug and gets a 500.
func HasRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := httpx.IdentityFrom(r.Context())
			if !ok || id.UserID == "" || id.Role == "" {
				WriteError(w, r, ErrNoIdentity)
				return
			}
			if !RoleSatisfies(id.Role, role) {
				WriteError(w, r, ErrInsufficientRights)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Protect wraps h with IsLoggedIn followed by HasRole(role).
func Protect(a Authenticator, log logging.Logger, role string, h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, IsLoggedIn(a, log), HasRole(role))
}
