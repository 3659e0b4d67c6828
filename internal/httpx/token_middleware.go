package httpx

import (
	"net/http"
	"strings"
)

// BearerTokenMiddleware copies the token from "Authorization: Bearer <token>"
// into the request context. Requests without one pass through untouched.
func BearerTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				r = r.WithContext(ContextWithToken(r.Context(), token))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// BaseURLMiddleware records the absolute API root of each request.
// X-Forwarded-Proto and X-Forwarded-Host are honored only when trustProxy
// is set.
func BaseURLMiddleware(apiPrefix string, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			host := r.Host
			if trustProxy {
				if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
					scheme = p
				}
				if h := r.Header.Get("X-Forwarded-Host"); h != "" {
					host = strings.TrimSpace(strings.Split(h, ",")[0])
				}
			}

			ctx := ContextWithBaseURL(r.Context(), scheme+"://"+host+apiPrefix)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
