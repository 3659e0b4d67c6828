package tokencache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCache shares entries between every API instance using the
// token_cache table.
type PostgresCache struct {
	db      *pgxpool.Pool
	ttl     time.Duration
	timeout time.Duration
}

func NewPostgresCache(db *pgxpool.Pool, ttl, timeout time.Duration) *PostgresCache {
	return &PostgresCache{db: db, ttl: ttl, timeout: timeout}
}

func (c *PostgresCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *PostgresCache) Get(ctx context.Context, userID string) (Entry, bool, error) {
	const query = `
	SELECT access_token, refresh_token_hash, is_revoked
	FROM token_cache
	WHERE user_id = $1 AND expires_at > now()
	`
	timeoutCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	var e Entry
	err := c.db.QueryRow(timeoutCtx, query, userID).Scan(&e.AccessToken, &e.RefreshTokenHash, &e.IsRevoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *PostgresCache) Put(ctx context.Context, userID string, e Entry) error {
	const query = `
	INSERT INTO token_cache (user_id, access_token, refresh_token_hash, is_revoked, expires_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		access_token = EXCLUDED.access_token,
		refresh_token_hash = EXCLUDED.refresh_token_hash,
		is_revoked = EXCLUDED.is_revoked,
		expires_at = EXCLUDED.expires_at
	`
	timeoutCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.db.Exec(timeoutCtx, query, userID, e.AccessToken, e.RefreshTokenHash, e.IsRevoked, time.Now().Add(c.ttl))
	return err
}

// CleanupExpired removes entries past their ttl and reports how many went.
func (c *PostgresCache) CleanupExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM token_cache WHERE expires_at <= now()`
	timeoutCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	tag, err := c.db.Exec(timeoutCtx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
