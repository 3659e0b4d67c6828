package tokencache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	defaultMaxEntries = 100_000
)

// MemoryCache is a process-local Cache backed by ristretto. Entries are not
// shared between instances and are lost on restart.
type MemoryCache struct {
	c   *ristretto.Cache[string, Entry]
	ttl time.Duration
}

func NewMemoryCache(ttl time.Duration, maxEntries int64) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, Entry]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init token cache: %w", err)
	}
	return &MemoryCache{c: c, ttl: ttl}, nil
}

func (m *MemoryCache) Get(_ context.Context, userID string) (Entry, bool, error) {
	e, ok := m.c.Get(Key(userID))
	return e, ok, nil
}

func (m *MemoryCache) Put(_ context.Context, userID string, e Entry) error {
	if !m.c.SetWithTTL(Key(userID), e, 1, m.ttl) {
		return ErrCacheRejected
	}
	// Make the write visible to the next Get.
	m.c.Wait()
	return nil
}

func (m *MemoryCache) Close() {
	m.c.Close()
}
