package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"socialapi/internal/logging"
	"socialapi/internal/platform/crypto"
	"socialapi/internal/session"
	"socialapi/internal/tokencache"
	"socialapi/internal/user"
)

const (
	testSecret   = "test-secret-key"
	testPassword = "Correct-Horse9"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]user.User
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]user.User{}}
}

func (f *fakeUsers) add(t *testing.T, username, role string) user.User {
	t.Helper()
	hash, err := crypto.HashPassword(testPassword)
	require.NoError(t, err)
	u := user.User{ID: uuid.NewString(), Username: username, Role: role, PasswordHash: hash}
	f.mu.Lock()
	f.users[u.ID] = u
	f.mu.Unlock()
	return u
}

func (f *fakeUsers) remove(id string) {
	f.mu.Lock()
	delete(f.users, id)
	f.mu.Unlock()
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return user.User{}, f.err
	}
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return user.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// memStore is an in-memory session.Store.
type memStore struct {
	mu   sync.Mutex
	rows map[string]session.RefreshToken
	err  error
	// deleteErr fails DeleteByID only.
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]session.RefreshToken{}}
}

func (m *memStore) Create(_ context.Context, userID, value string, expiry time.Time) (session.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return session.RefreshToken{}, m.err
	}
	t := session.RefreshToken{ID: uuid.NewString(), UserID: userID, Value: value, ExpiryDate: expiry, CreatedAt: time.Now()}
	m.rows[t.ID] = t
	return t, nil
}

func (m *memStore) FindByValue(_ context.Context, value string) (session.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return session.RefreshToken{}, m.err
	}
	for _, t := range m.rows {
		if t.Value == value {
			return t, nil
		}
	}
	return session.RefreshToken{}, session.ErrNotFound
}

func (m *memStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for id, t := range m.rows {
		if t.UserID == userID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CleanupExpired(context.Context) (int64, error) {
	return 0, nil
}

func (m *memStore) countFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.rows {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// insertExpired stores a refresh token that expired a minute ago.
func (m *memStore) insertExpired(userID string) string {
	value := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.rows[id] = session.RefreshToken{ID: id, UserID: userID, Value: value, ExpiryDate: time.Now().Add(-time.Minute)}
	return value
}

// flakyCache wraps a Cache and fails every call while err is set, or only
// Put while putErr is set.
type flakyCache struct {
	tokencache.Cache
	mu     sync.Mutex
	err    error
	putErr error
}

func (f *flakyCache) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *flakyCache) setPutErr(err error) {
	f.mu.Lock()
	f.putErr = err
	f.mu.Unlock()
}

func (f *flakyCache) Get(ctx context.Context, userID string) (tokencache.Entry, bool, error) {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return tokencache.Entry{}, false, err
	}
	return f.Cache.Get(ctx, userID)
}

func (f *flakyCache) Put(ctx context.Context, userID string, e tokencache.Entry) error {
	f.mu.Lock()
	err := f.err
	if err == nil {
		err = f.putErr
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Cache.Put(ctx, userID, e)
}

type fixture struct {
	users   *fakeUsers
	store   *memStore
	cache   *flakyCache
	issuer  *Issuer
	guard   *Guard
	service *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	mem, err := tokencache.NewMemoryCache(time.Hour, 1000)
	require.NoError(t, err)
	t.Cleanup(mem.Close)

	f := &fixture{
		users: newFakeUsers(),
		store: newMemStore(),
		cache: &flakyCache{Cache: mem},
	}
	f.issuer = NewIssuer(testSecret, 15*time.Minute, 24*time.Hour, f.store)
	f.guard = NewGuard(f.issuer, f.cache)
	f.service = NewService(f.users, f.issuer, f.store, f.cache, logging.Discard(), opts)
	return f
}
