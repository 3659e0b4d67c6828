// Package user owns accounts: signup, lookup, profile updates, deletion and
// password changes.
package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrAlreadyExists     = errors.New("user already exists")
	ErrForbidden         = errors.New("insufficient rights")
	ErrBadCredentials    = errors.New("bad credentials")
	ErrSamePassword      = errors.New("new password is identical to the old one")
	ErrOldPasswordNeeded = errors.New("old password is required")
	ErrInvalidRole       = errors.New("unknown role")
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"` // user, admin
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Birthdate    *time.Time `json:"birthdate,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Actor is whoever performs an operation on an account.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) canManage(userID string) bool {
	return a.ID == userID || a.Role == RoleAdmin
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
