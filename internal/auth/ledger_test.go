package auth

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hrcore/internal/models"
)

func newLedger(t *testing.T) Ledger {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))
	return Ledger{DB: db}
}

func TestLedgerAddAndRevoke(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	require.NoError(t, l.Add("user-1", "jti-1", time.Now().Add(time.Hour)))

	revoked, err := l.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	deleted, err := l.Revoke("jti-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	revoked, err = l.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLedgerRevokeIsSingleUse(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	require.NoError(t, l.Add("user-1", "jti-1", time.Now().Add(time.Hour)))

	first, err := l.Revoke("jti-1")
	require.NoError(t, err)
	second, err := l.Revoke("jti-1")
	require.NoError(t, err)

	assert.True(t, first, "the first revocation wins")
	assert.False(t, second, "a replayed revocation must lose")
}

func TestLedgerMissingTokenIsRevoked(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	revoked, err := l.IsRevoked("never-issued")
	require.NoError(t, err)
	assert.True(t, revoked, "missing and revoked are indistinguishable")
}

func TestLedgerExpiredTokenIsRevoked(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	require.NoError(t, l.Add("user-1", "jti-old", time.Now().Add(-time.Minute)))

	revoked, err := l.IsRevoked("jti-old")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLedgerAddUpsertsOnSameJTI(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	require.NoError(t, l.Add("user-1", "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, l.Add("user-1", "jti-1", time.Now().Add(2*time.Hour)))

	var count int64
	require.NoError(t, l.DB.Model(&models.RefreshToken{}).Where("jti = ?", "jti-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLedgerRevokeAllForUser(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	require.NoError(t, l.Add("user-1", "jti-a", time.Now().Add(time.Hour)))
	require.NoError(t, l.Add("user-1", "jti-b", time.Now().Add(time.Hour)))
	require.NoError(t, l.Add("user-2", "jti-c", time.Now().Add(time.Hour)))

	require.NoError(t, l.RevokeAllForUser("user-1"))

	revoked, err := l.IsRevoked("jti-a")
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = l.IsRevoked("jti-c")
	require.NoError(t, err)
	assert.False(t, revoked, "other users keep their tokens")
}
