// Package session persists refresh tokens.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("refresh token not found")
	ErrUnknownUser = errors.New("refresh token owner does not exist")
)

// RefreshToken is one persisted refresh token. Value holds the opaque
// plaintext only when the caller supplied it; the table keeps a hash.
type RefreshToken struct {
	ID         string
	UserID     string
	Value      string
	ExpiryDate time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether t's expiry lies before now.
func IsExpired(t RefreshToken, now time.Time) bool {
	return t.ExpiryDate.Before(now)
}

// HashValue is the at-rest form of a refresh token value.
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}
