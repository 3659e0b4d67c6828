// Package auth issues tokens, guards protected routes and drives the
// login, refresh and logout lifecycle.
package auth

import (
	"errors"
	"net/http"

	"socialapi/internal/httpx"
	"socialapi/internal/platform/crypto"
)

var (
	ErrNoTokenProvided      = errors.New("no token provided")
	ErrInvalidToken         = errors.New("the token is not valid")
	ErrExpiredToken         = errors.New("the token is expired")
	ErrTokenSuperseded      = errors.New("the token has been superseded by a newer login")
	ErrTokenRevoked         = errors.New("the token is revoked")
	ErrRefreshTokenNotFound = errors.New("the refresh token is not registered")
	ErrRefreshTokenExpired  = errors.New("the refresh token is expired, login again")
	ErrInsufficientRights   = errors.New("insufficient rights")
	ErrBadCredentials       = errors.New("bad credentials")
	ErrNoIdentity           = errors.New("no authenticated user on the request")

	// ErrSessionStateUnavailable wraps transient token cache or session
	// store failures. It never means "not revoked".
	ErrSessionStateUnavailable = errors.New("session state unavailable")

	ErrConfiguration = crypto.ErrMissingSigningKey
)

type errorResponse struct {
	status  int
	code    string
	message string
}

// authnResponses covers failures of the access token presented on a request.
var authnResponses = []struct {
	err  error
	resp errorResponse
}{
	{ErrNoTokenProvided, errorResponse{http.StatusUnauthorized, "NO_TOKEN_PROVIDED", "No token provided"}},
	{ErrInvalidToken, errorResponse{http.StatusUnauthorized, "INVALID_TOKEN", "The token is not valid"}},
	{ErrExpiredToken, errorResponse{http.StatusUnauthorized, "TOKEN_EXPIRED", "The token is expired"}},
	{ErrTokenSuperseded, errorResponse{http.StatusUnauthorized, "TOKEN_SUPERSEDED", "The token has been superseded"}},
	{ErrTokenRevoked, errorResponse{http.StatusUnauthorized, "TOKEN_REVOKED", "The token is revoked"}},
	{ErrBadCredentials, errorResponse{http.StatusUnauthorized, "BAD_CREDENTIALS", "Bad credentials"}},
	{ErrInsufficientRights, errorResponse{http.StatusForbidden, "INSUFFICIENT_RIGHTS", "Insufficient rights"}},
	{ErrSessionStateUnavailable, errorResponse{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable"}},
}

// refreshResponses covers the refresh endpoint, where every rejection is a 403.
var refreshResponses = []struct {
	err  error
	resp errorResponse
}{
	{ErrRefreshTokenNotFound, errorResponse{http.StatusForbidden, "REFRESH_TOKEN_NOT_FOUND", "The refresh token is not registered"}},
	{ErrRefreshTokenExpired, errorResponse{http.StatusForbidden, "REFRESH_TOKEN_EXPIRED", "Refresh token is expired. You need to login again"}},
	{ErrTokenRevoked, errorResponse{http.StatusForbidden, "TOKEN_REVOKED", "The token is revoked"}},
	{ErrSessionStateUnavailable, errorResponse{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable"}},
}

var internalResponse = errorResponse{http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"}

func lookup(table []struct {
	err  error
	resp errorResponse
}, err error) errorResponse {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.resp
		}
	}
	return internalResponse
}

// WriteError renders an authentication or authorization failure. Unknown
// errors become a bare 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	resp := lookup(authnResponses, err)
	httpx.JSONError(w, r, resp.status, resp.code, resp.message, nil)
}

func writeRefreshError(w http.ResponseWriter, r *http.Request, err error) {
	resp := lookup(refreshResponses, err)
	httpx.JSONError(w, r, resp.status, resp.code, resp.message, nil)
}
