package user

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	// Update writes the profile fields and role of u.
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// AccessRevoker ends every session of a user without blocking the caller.
type AccessRevoker interface {
	RevokeAccessAsync(ctx context.Context, userID string)
}
