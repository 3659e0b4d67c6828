package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"socialapi/internal/platform/postgres"
)

const userColumns = `id, email, username, password_hash, role,
	COALESCE(first_name, ''), COALESCE(last_name, ''), birthdate, created_at, updated_at`

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

func (r *PostgresRepo) Create(ctx context.Context, u *User) error {
	const query = `
	INSERT INTO users (email, username, password_hash, role, first_name, last_name, birthdate)
	VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'user'), NULLIF($5, ''), NULLIF($6, ''), $7)
	RETURNING id, role, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		u.Email, u.Username, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.Birthdate,
	).Scan(&u.ID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 LIMIT 1`, username)
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (User, error) {
	u, err := r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)
	if postgres.IsInvalidText(err) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepo) findOne(ctx context.Context, query string, arg string) (User, error) {
	var u User
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.FirstName, &u.LastName, &u.Birthdate, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) Update(ctx context.Context, u *User) error {
	const query = `
	UPDATE users
	SET email = $2, username = $3, role = $4,
		first_name = NULLIF($5, ''), last_name = NULLIF($6, ''), updated_at = now()
	WHERE id = $1
	RETURNING updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		u.ID, u.Email, u.Username, u.Role, u.FirstName, u.LastName,
	).Scan(&u.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows), postgres.IsInvalidText(err):
			return ErrNotFound
		case postgres.IsUniqueViolation(err):
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Delete removes the user. Its refresh tokens go with it through the
// foreign key cascade.
func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id)
	if err != nil {
		if postgres.IsInvalidText(err) {
			return ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id, passwordHash)
	if err != nil {
		if postgres.IsInvalidText(err) {
			return ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
