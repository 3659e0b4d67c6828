package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	tokenKey     contextKey = "token"
	requestIDKey contextKey = "requestID"
	baseURLKey   contextKey = "baseURL"
	logInfoKey   contextKey = "logInfo"
)

// Identity is the authenticated caller attached by the auth middleware.
type Identity struct {
	UserID string
	Role   string
}

// ContextWithIdentity returns a new context carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	if info, ok := ctx.Value(logInfoKey).(*logInfo); ok {
		info.userID = id.UserID
	}
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom reports the identity in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserIDFrom retrieves the user ID from the request context.
func UserIDFrom(r *http.Request) string {
	id, _ := IdentityFrom(r.Context())
	return id.UserID
}

// RoleFrom retrieves the user role from the request context.
func RoleFrom(r *http.Request) string {
	id, _ := IdentityFrom(r.Context())
	return id.Role
}

func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFrom returns the bearer token extracted by BearerTokenMiddleware.
func TokenFrom(r *http.Request) string {
	if v, ok := r.Context().Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithBaseURL(ctx context.Context, baseURL string) context.Context {
	return context.WithValue(ctx, baseURLKey, baseURL)
}

// BaseURLFrom returns the absolute API root of the current request, e.g.
// https://api.example.com/api/v1.
func BaseURLFrom(r *http.Request) string {
	if v, ok := r.Context().Value(baseURLKey).(string); ok {
		return v
	}
	return ""
}
