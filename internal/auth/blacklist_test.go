package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRevocationList(t *testing.T) {
	t.Parallel()

	l := NewMemoryRevocationList()
	assert.False(t, l.IsRevoked("jti-1"))

	l.Revoke("jti-1", time.Now().Add(time.Hour))
	assert.True(t, l.IsRevoked("jti-1"))
	assert.False(t, l.IsRevoked("jti-2"))
}

func TestMemoryRevocationListExpiry(t *testing.T) {
	t.Parallel()

	l := NewMemoryRevocationList()
	l.Revoke("stale", time.Now().Add(-time.Minute))
	assert.False(t, l.IsRevoked("stale"), "an entry past its token expiry no longer blocks")

	// The next write purges expired entries.
	l.Revoke("fresh", time.Now().Add(time.Hour))
	l.mu.RLock()
	_, stale := l.revoked["stale"]
	l.mu.RUnlock()
	assert.False(t, stale)
	assert.True(t, l.IsRevoked("fresh"))
}
