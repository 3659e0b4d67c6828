package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSigningKey = errors.New("jwt signing key is not configured")
	ErrTokenExpired      = errors.New("token is expired")
	ErrTokenInvalid      = errors.New("token is invalid")
)

// Claims carries the identity of an access token. Subject is the user id.
type Claims struct {
	Role string `json:"role"` // user/admin
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 access token for userID. The returned jti is
// unique per call, so two tokens minted in the same second still differ.
func GenerateToken(secret, userID, role string, ttl time.Duration) (string, string, error) {
	if secret == "" {
		return "", "", ErrMissingSigningKey
	}

	jti := uuid.NewString()
	now := time.Now()
	c := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tokenStr, jti, nil
}

// ParseToken verifies signature and expiry only. It never consults a store.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	if secret == "" {
		return nil, ErrMissingSigningKey
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
