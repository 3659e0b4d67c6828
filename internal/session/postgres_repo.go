package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"socialapi/internal/platform/postgres"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Create(ctx context.Context, userID, value string, expiry time.Time) (RefreshToken, error) {
	const query = `
	INSERT INTO refresh_tokens (user_id, token_hash, expiry_date)
	VALUES ($1, $2, $3)
	RETURNING id, created_at
	`
	t := RefreshToken{UserID: userID, Value: value, ExpiryDate: expiry}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, userID, HashValue(value), expiry).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) || postgres.IsInvalidText(err) {
			return RefreshToken{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return RefreshToken{}, err
	}
	return t, nil
}

func (r *PostgresRepo) FindByValue(ctx context.Context, value string) (RefreshToken, error) {
	const query = `
	SELECT id, user_id, expiry_date, created_at
	FROM refresh_tokens
	WHERE token_hash = $1
	`
	t := RefreshToken{Value: value}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, HashValue(value)).Scan(&t.ID, &t.UserID, &t.ExpiryDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshToken{}, ErrNotFound
		}
		return RefreshToken{}, err
	}
	return t, nil
}

func (r *PostgresRepo) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM refresh_tokens WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, id)
	return err
}

// DeleteByUser removes every refresh token of userID. Deleting none is not an
// error.
func (r *PostgresRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, userID)
	if err != nil {
		if postgres.IsInvalidText(err) {
			return 0, nil
		}
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) CleanupExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expiry_date < now()`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
