package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapi/internal/auth"
	"socialapi/internal/config"
	"socialapi/internal/httpx"
	"socialapi/internal/logging"
	"socialapi/internal/session"
	"socialapi/internal/testutil"
	"socialapi/internal/tokencache"
	"socialapi/internal/user"
)

type userRepo struct {
	mu    sync.Mutex
	users map[string]user.User
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return user.ErrAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	r.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	r.users[u.ID] = *u
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

type sessionStore struct {
	mu   sync.Mutex
	rows map[string]session.RefreshToken
}

func (s *sessionStore) Create(_ context.Context, userID, value string, expiry time.Time) (session.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := session.RefreshToken{ID: uuid.NewString(), UserID: userID, Value: value, ExpiryDate: expiry}
	s.rows[t.ID] = t
	return t, nil
}

func (s *sessionStore) FindByValue(_ context.Context, value string) (session.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.rows {
		if t.Value == value {
			return t, nil
		}
	}
	return session.RefreshToken{}, session.ErrNotFound
}

func (s *sessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *sessionStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.rows {
		if t.UserID == userID {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *sessionStore) CleanupExpired(context.Context) (int64, error) { return 0, nil }

type testServer struct {
	handler     http.Handler
	authService *auth.Service
	users       *userRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		HTTP:   config.HTTPConfig{APIPrefix: "/api/v1"},
		Limits: config.LimitsConfig{RateLimitRPS: 1000, RateLimitBurst: 1000, MaxBodyBytes: 1 << 20},
	}
	log := logging.Discard()

	cache, err := tokencache.NewMemoryCache(time.Hour, 1000)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	users := &userRepo{users: map[string]user.User{}}
	store := &sessionStore{rows: map[string]session.RefreshToken{}}

	issuer := auth.NewIssuer(testutil.TestSecret, 15*time.Minute, 24*time.Hour, store)
	authService := auth.NewService(users, issuer, store, cache, log, auth.Options{})
	userService := user.NewService(users, authService, log)

	a := &app{
		cfg:         cfg,
		log:         log,
		guard:       auth.NewGuard(issuer, cache),
		authHandler: auth.NewHTTPHandler(authService, log),
		userHandler: user.NewHTTPHandler(userService, log),
		limiter:     httpx.NewRateLimitMiddleware(cfg.Limits.RateLimitRPS, cfg.Limits.RateLimitBurst, false),
		ready:       func(context.Context) error { return nil },
	}
	return &testServer{handler: a.routes(), authService: authService, users: users}
}

func (s *testServer) do(r *http.Request) testutil.RecordResponse {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return testutil.RecordHTTPResponse(w)
}

const password = "Correct-Horse9"

func (s *testServer) signupAndLogin(t *testing.T, username string) (userID, access, refresh string) {
	t.Helper()

	resp := s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/signup", map[string]any{
		"email": username + "@example.com", "username": username, "password": password,
	}))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": username, "password": password, "remember": true,
	}))
	require.Equal(t, http.StatusOK, resp.Code)

	data := resp.Data()
	return data["user_id"].(string), data["access_token"].(string), data["refresh_token"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(testutil.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, s.do(testutil.NewRequest(http.MethodGet, "/readyz", nil)).Code)
}

func TestV1Routing_PrefixRequired(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(testutil.NewRequest(http.MethodPost, "/auth/login", map[string]any{"username": "a", "password": "b"}))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	userID, access, refresh := s.signupAndLogin(t, "alice")

	resp := s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/me", nil, access))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID, resp.Data()["id"])

	resp = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{"refresh_token": refresh}))
	require.Equal(t, http.StatusOK, resp.Code)
	newAccess := resp.Data()["access_token"].(string)
	assert.Equal(t, refresh, resp.Data()["refresh_token"])

	resp = s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/me", nil, access))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "TOKEN_SUPERSEDED", resp.ErrorCode())

	resp = s.do(testutil.NewRequestWithAuth(http.MethodPost, "/api/v1/auth/logout", nil, newAccess))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/me", nil, newAccess))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "TOKEN_REVOKED", resp.ErrorCode())

	resp = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{"refresh_token": refresh}))
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "REFRESH_TOKEN_NOT_FOUND", resp.ErrorCode())
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	userID, access, _ := s.signupAndLogin(t, "bob")

	resp := s.do(testutil.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "NO_TOKEN_PROVIDED", resp.ErrorCode())

	resp = s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/me", nil, testutil.GenerateExpiredToken(testutil.TestSecret, userID, "user")))
	assert.Equal(t, "TOKEN_EXPIRED", resp.ErrorCode())

	resp = s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/users/"+userID, nil, access))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "INSUFFICIENT_RIGHTS", resp.ErrorCode())
}

func TestDeleteUser_RevokesSessions(t *testing.T) {
	s := newTestServer(t)
	userID, access, refresh := s.signupAndLogin(t, "carol")

	resp := s.do(testutil.NewRequestWithAuth(http.MethodDelete, "/api/v1/users/"+userID, nil, access))
	require.Equal(t, http.StatusNoContent, resp.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.authService.Wait(ctx))

	resp = s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/me", nil, access))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "TOKEN_REVOKED", resp.ErrorCode())

	resp = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{"refresh_token": refresh}))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestUpdateUser_RoleChangeRevokesSessions(t *testing.T) {
	s := newTestServer(t)
	userID, access, refresh := s.signupAndLogin(t, "dave")
	adminID, _, _ := s.signupAndLogin(t, "erin")

	s.users.mu.Lock()
	admin := s.users.users[adminID]
	admin.Role = user.RoleAdmin
	s.users.users[adminID] = admin
	s.users.mu.Unlock()

	resp := s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"username": "erin", "password": password,
	}))
	require.Equal(t, http.StatusOK, resp.Code)
	adminAccess := resp.Data()["access_token"].(string)

	resp = s.do(testutil.NewRequestWithAuth(http.MethodPut, "/api/v1/users/"+userID, map[string]string{"role": "root"}, adminAccess))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(testutil.NewRequestWithAuth(http.MethodPut, "/api/v1/users/"+userID, map[string]string{"first_name": "Dave"}, access))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Dave", resp.Data()["first_name"])

	resp = s.do(testutil.NewRequestWithAuth(http.MethodPut, "/api/v1/users/"+userID, map[string]string{"role": "admin"}, adminAccess))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "admin", resp.Data()["role"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.authService.Wait(ctx))

	resp = s.do(testutil.NewRequestWithAuth(http.MethodGet, "/api/v1/me", nil, access))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "TOKEN_REVOKED", resp.ErrorCode())

	resp = s.do(testutil.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{"refresh_token": refresh}))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
