package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"socialapi/internal/logging"
	"socialapi/internal/platform/crypto"
	"socialapi/internal/session"
	"socialapi/internal/tokencache"
	"socialapi/internal/user"
)

const defaultRevokeTimeout = 10 * time.Second

// UserLookup finds accounts. Both methods return user.ErrNotFound when the
// account does not exist.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
}

type Options struct {
	// RotateRefreshTokens replaces the refresh value on every refresh.
	RotateRefreshTokens bool
	// RevokeTimeout bounds background revocations.
	RevokeTimeout time.Duration
}

type Service struct {
	users  UserLookup
	issuer *Issuer
	store  session.Store
	cache  tokencache.Cache
	log    logging.Logger
	opts   Options

	verifyPassword func(hash, plain string) bool

	wg sync.WaitGroup
}

// dummyHash is compared against when the username is unknown so that both
// branches of Login pay for one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	h, _ := crypto.HashPassword("not-a-real-password-0")
	return h
})

func NewService(users UserLookup, issuer *Issuer, store session.Store, cache tokencache.Cache, log logging.Logger, opts Options) *Service {
	if opts.RevokeTimeout <= 0 {
		opts.RevokeTimeout = defaultRevokeTimeout
	}
	return &Service{
		users:  users,
		issuer: issuer,
		store:  store,
		cache:  cache,
		log:    log,
		opts:   opts,

		verifyPassword: crypto.VerifyPassword,
	}
}

type LoginResult struct {
	UserID       string
	Role         string
	AccessToken  string
	RefreshToken string // empty unless remember was requested
	ExpiresIn    int
}

// Login checks the credentials and starts a new session, replacing any
// previous one for the same user.
func (s *Service) Login(ctx context.Context, username, password string, remember bool) (LoginResult, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.verifyPassword(dummyHash(), password)
			return LoginResult{}, ErrBadCredentials
		}
		return LoginResult{}, unavailable("find user", err)
	}
	if !s.verifyPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrBadCredentials
	}

	accessToken, err := s.issuer.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return LoginResult{}, err
	}

	var refreshToken string
	if remember {
		refreshToken, err = s.issuer.IssueRefreshToken(ctx, u.ID)
		if err != nil {
			return LoginResult{}, unavailable("issue refresh token", err)
		}
	}

	if err := s.cache.Put(ctx, u.ID, newEntry(accessToken, refreshToken)); err != nil {
		return LoginResult{}, unavailable("write token cache", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", u.ID, "remember", remember)
	return LoginResult{
		UserID:       u.ID,
		Role:         u.Role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
	}, nil
}

type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Refresh trades a refresh value for a new access token. Unless rotation is
// enabled the same refresh value is handed back.
func (s *Service) Refresh(ctx context.Context, value string) (RefreshResult, error) {
	if value == "" {
		return RefreshResult{}, ErrRefreshTokenNotFound
	}

	rt, err := s.store.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return RefreshResult{}, ErrRefreshTokenNotFound
		}
		return RefreshResult{}, unavailable("find refresh token", err)
	}

	if session.IsExpired(rt, time.Now()) {
		if err := s.store.DeleteByID(ctx, rt.ID); err != nil {
			s.log.Error(ctx, "delete expired refresh token failed", "user_id", rt.UserID, "error", err)
		}
		return RefreshResult{}, ErrRefreshTokenExpired
	}

	u, err := s.users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return RefreshResult{}, ErrRefreshTokenNotFound
		}
		return RefreshResult{}, unavailable("find user", err)
	}

	accessToken, err := s.issuer.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return RefreshResult{}, err
	}

	cached, found, err := s.cache.Get(ctx, u.ID)
	if err != nil {
		return RefreshResult{}, unavailable("read token cache", err)
	}
	if found && cached.IsRevoked {
		return RefreshResult{}, ErrTokenRevoked
	}

	if s.opts.RotateRefreshTokens {
		return s.rotate(ctx, rt, accessToken)
	}

	if err := s.cache.Put(ctx, u.ID, newEntry(accessToken, rt.Value)); err != nil {
		return RefreshResult{}, unavailable("write token cache", err)
	}

	return RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: rt.Value,
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// rotate swaps old for a new refresh value. The old row is deleted last, so
// a failure at any step leaves old usable for a retry.
func (s *Service) rotate(ctx context.Context, old session.RefreshToken, accessToken string) (RefreshResult, error) {
	next, err := s.issuer.issueRefresh(ctx, old.UserID)
	if err != nil {
		return RefreshResult{}, unavailable("issue refresh token", err)
	}

	if err := s.cache.Put(ctx, old.UserID, newEntry(accessToken, next.Value)); err != nil {
		s.discard(ctx, next)
		return RefreshResult{}, unavailable("write token cache", err)
	}
	if err := s.store.DeleteByID(ctx, old.ID); err != nil {
		s.discard(ctx, next)
		return RefreshResult{}, unavailable("delete used refresh token", err)
	}

	return RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: next.Value,
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// discard drops a refresh token that was never handed out.
func (s *Service) discard(ctx context.Context, t session.RefreshToken) {
	if err := s.store.DeleteByID(ctx, t.ID); err != nil {
		s.log.Error(ctx, "discard unused refresh token failed", "user_id", t.UserID, "error", err)
	}
}

// newEntry records the session in the token cache. Only a digest of the
// refresh value is kept there; the plain value lives with the client.
func newEntry(accessToken, refreshToken string) tokencache.Entry {
	e := tokencache.Entry{AccessToken: accessToken}
	if refreshToken != "" {
		e.RefreshTokenHash = session.HashValue(refreshToken)
	}
	return e
}

// Logout revokes the caller's session and deletes all of their refresh
// tokens. presentedToken is the access token the request was made with.
func (s *Service) Logout(ctx context.Context, p Principal, presentedToken string) error {
	return s.revoke(ctx, p.UserID, presentedToken)
}

// RevokeAccess ends every session of userID.
func (s *Service) RevokeAccess(ctx context.Context, userID string) error {
	return s.revoke(ctx, userID, "")
}

// RevokeAccessAsync runs RevokeAccess in the background. Failures are
// logged. Wait blocks until every pending revocation is done.
func (s *Service) RevokeAccessAsync(ctx context.Context, userID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RevokeTimeout)
		defer cancel()

		if err := s.RevokeAccess(revokeCtx, userID); err != nil {
			s.log.Error(revokeCtx, "revoke access failed", "user_id", userID, "error", err)
			return
		}
		s.log.Info(revokeCtx, "access revoked", "user_id", userID)
	}()
}

// Wait blocks until background revocations finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) revoke(ctx context.Context, userID, presentedToken string) error {
	var errs []error

	entry, found, err := s.cache.Get(ctx, userID)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("read token cache: %w", err))
	case found && entry.AccessToken != "":
		// Keep the recorded values; only the flag matters from here on.
		entry.IsRevoked = true
		if err := s.cache.Put(ctx, userID, entry); err != nil {
			errs = append(errs, fmt.Errorf("write token cache: %w", err))
		}
	default:
		entry = tokencache.Entry{AccessToken: presentedToken, IsRevoked: true}
		if err := s.cache.Put(ctx, userID, entry); err != nil {
			errs = append(errs, fmt.Errorf("write token cache: %w", err))
		}
	}

	if _, err := s.store.DeleteByUser(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("delete refresh tokens: %w", err))
	}
	return errors.Join(errs...)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSessionStateUnavailable, op, err)
}
