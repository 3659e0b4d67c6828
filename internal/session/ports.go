package session

import (
	"context"
	"time"
)

// Store is the refresh token repository. FindByValue returns expired rows
// too; callers decide what to do with them.
type Store interface {
	Create(ctx context.Context, userID, value string, expiry time.Time) (RefreshToken, error)
	FindByValue(ctx context.Context, value string) (RefreshToken, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	CleanupExpired(ctx context.Context) (int64, error)
}
