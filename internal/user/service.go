package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"socialapi/internal/logging"
	"socialapi/internal/platform/crypto"
)

type Service struct {
	repo    Repository
	revoker AccessRevoker
	log     logging.Logger
}

func NewService(repo Repository, revoker AccessRevoker, log logging.Logger) *Service {
	return &Service{repo: repo, revoker: revoker, log: log}
}

type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Birthdate *time.Time
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Role:         RoleUser,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Birthdate:    in.Birthdate,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return *u, nil
}

// CreateAdmin registers an account with the admin role.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (User, error) {
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Role:         RoleAdmin,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return *u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if !validID(id) {
		return User{}, ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// FindByID and FindByUsername make Service usable as the account lookup of
// the auth package.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.GetByID(ctx, id)
}

func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, strings.TrimSpace(username))
}

// UpdateInput carries a partial profile update. Empty fields are left as
// they are.
type UpdateInput struct {
	Email     string
	Username  string
	Role      string
	FirstName string
	LastName  string
}

// Update applies in to the account. Only the owner or an admin may update,
// and only an admin may change the role. A role change ends every session
// of the account, since its tokens still carry the old role.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in UpdateInput) (User, error) {
	if !validID(id) {
		return User{}, ErrNotFound
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !actor.canManage(id) {
		return User{}, ErrForbidden
	}

	roleChanged := in.Role != "" && in.Role != u.Role
	if roleChanged {
		if actor.Role != RoleAdmin {
			return User{}, ErrForbidden
		}
		if !validRole(in.Role) {
			return User{}, ErrInvalidRole
		}
		u.Role = in.Role
	}
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" {
		u.Email = email
	}
	if username := strings.TrimSpace(in.Username); username != "" {
		u.Username = username
	}
	if first := strings.TrimSpace(in.FirstName); first != "" {
		u.FirstName = first
	}
	if last := strings.TrimSpace(in.LastName); last != "" {
		u.LastName = last
	}

	if err := s.repo.Update(ctx, &u); err != nil {
		return User{}, err
	}
	s.log.Info(ctx, "user updated", "user_id", id, "actor_id", actor.ID, "role_changed", roleChanged)

	if roleChanged {
		s.revoker.RevokeAccessAsync(ctx, id)
	}
	return u, nil
}

// Delete removes the account and then revokes its sessions in the
// background. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if !actor.canManage(id) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "user_id", id, "actor_id", actor.ID)

	s.revoker.RevokeAccessAsync(ctx, id)
	return nil
}

// ChangePassword sets a new password. Admins may skip oldPassword.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, id, oldPassword, newPassword string) error {
	if !validID(id) {
		return ErrNotFound
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canManage(id) {
		return ErrForbidden
	}

	if actor.Role != RoleAdmin {
		if oldPassword == "" {
			return ErrOldPasswordNeeded
		}
		if !crypto.VerifyPassword(u.PasswordHash, oldPassword) {
			return ErrBadCredentials
		}
	}
	if oldPassword == newPassword || crypto.VerifyPassword(u.PasswordHash, newPassword) {
		return ErrSamePassword
	}
	if err := crypto.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.log.Info(ctx, "password changed", "user_id", id, "actor_id", actor.ID)
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
