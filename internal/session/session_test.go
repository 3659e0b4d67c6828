package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, IsExpired(RefreshToken{ExpiryDate: now.Add(-time.Second)}, now))
	assert.False(t, IsExpired(RefreshToken{ExpiryDate: now.Add(time.Second)}, now))
	assert.False(t, IsExpired(RefreshToken{ExpiryDate: now}, now), "expiry equal to now is still valid")
}

func TestHashValue(t *testing.T) {
	h := HashValue("abc")

	assert.Len(t, h, 64)
	assert.Equal(t, h, HashValue("abc"))
	assert.NotEqual(t, h, HashValue("abd"))
}
