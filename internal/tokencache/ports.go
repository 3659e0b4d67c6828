// Package tokencache keeps the per-user record of the most recently issued
// access token and whether it has been revoked.
package tokencache

import (
	"context"
	"errors"
)

// ErrCacheRejected is returned when the backend refused to store an entry.
var ErrCacheRejected = errors.New("token cache rejected entry")

// Entry is the cached session state of one user. An empty AccessToken means
// the entry carries no token to compare against. RefreshTokenHash is the
// sha256 digest of the latest refresh value, never the value itself.
type Entry struct {
	AccessToken      string `json:"accessToken"`
	RefreshTokenHash string `json:"refreshTokenHash,omitempty"`
	IsRevoked        bool   `json:"isRevoked"`
}

// Cache stores at most one Entry per user. Put overwrites whatever was there.
// Get reports found=false for a missing or expired entry.
type Cache interface {
	Get(ctx context.Context, userID string) (Entry, bool, error)
	Put(ctx context.Context, userID string, e Entry) error
}

// Key is the storage key for userID.
func Key(userID string) string {
	return "jwt" + userID
}
