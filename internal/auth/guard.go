package auth

import (
	"context"
	"fmt"

	"socialapi/internal/tokencache"
)

// Guard decides whether an access token may be used right now.
type Guard struct {
	issuer *Issuer
	cache  tokencache.Cache
}

func NewGuard(issuer *Issuer, cache tokencache.Cache) *Guard {
	return &Guard{issuer: issuer, cache: cache}
}

// Authenticate runs, in order: presence, signature, expiry, then the cached
// session cross-check. A missing cache entry lets the token through; a
// failing cache never does.
func (g *Guard) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrNoTokenProvided
	}

	p, err := g.issuer.VerifyAccessToken(token)
	if err != nil {
		return Principal{}, err
	}

	entry, found, err := g.cache.Get(ctx, p.UserID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: read token cache: %w", ErrSessionStateUnavailable, err)
	}
	if !found {
		return p, nil
	}
	if entry.AccessToken != token {
		return Principal{}, ErrTokenSuperseded
	}
	if entry.IsRevoked {
		return Principal{}, ErrTokenRevoked
	}
	return p, nil
}
