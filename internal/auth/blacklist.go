package auth

import (
	"sync"
	"time"
)

// RevocationList invalidates access tokens before their natural expiry.
// The in-memory implementation is process-local; a multi-instance deployment
// plugs a shared store in behind this interface.
type RevocationList interface {
	Revoke(jti string, expiresAt time.Time)
	IsRevoked(jti string) bool
}

// MemoryRevocationList keeps revoked access-token ids until they would have
// expired anyway. Entries are purged lazily on write.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time)}
}

func (l *MemoryRevocationList) Revoke(jti string, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for id, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, id)
		}
	}
	l.revoked[jti] = expiresAt
}

func (l *MemoryRevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	exp, ok := l.revoked[jti]
	if !ok {
		return false
	}
	return time.Now().Before(exp)
}
