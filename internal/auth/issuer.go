package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialapi/internal/platform/crypto"
	"socialapi/internal/session"
)

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID string
	Role   string
}

// Issuer mints access tokens and refresh tokens. Verification is purely
// signature and expiry; it never consults a store.
type Issuer struct {
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      session.Store
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration, store session.Store) *Issuer {
	return &Issuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, store: store}
}

// AccessTTL is the lifetime of tokens from IssueAccessToken.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) IssueAccessToken(userID, role string) (string, error) {
	token, _, err := crypto.GenerateToken(i.secret, userID, role, i.accessTTL)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (i *Issuer) VerifyAccessToken(token string) (Principal, error) {
	claims, err := crypto.ParseToken(i.secret, token)
	switch {
	case err == nil:
		return Principal{UserID: claims.Subject, Role: claims.Role}, nil
	case errors.Is(err, crypto.ErrTokenExpired):
		return Principal{}, ErrExpiredToken
	case errors.Is(err, crypto.ErrMissingSigningKey):
		return Principal{}, err
	default:
		return Principal{}, ErrInvalidToken
	}
}

// IssueRefreshToken persists a new random refresh value for userID and
// returns it. The value is a UUIDv4 (122 random bits).
func (i *Issuer) IssueRefreshToken(ctx context.Context, userID string) (string, error) {
	t, err := i.issueRefresh(ctx, userID)
	if err != nil {
		return "", err
	}
	return t.Value, nil
}

func (i *Issuer) issueRefresh(ctx context.Context, userID string) (session.RefreshToken, error) {
	t, err := i.store.Create(ctx, userID, uuid.NewString(), time.Now().Add(i.refreshTTL))
	if err != nil {
		return session.RefreshToken{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return t, nil
}
