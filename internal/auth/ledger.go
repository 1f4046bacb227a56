package auth

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrcore/internal/models"
)

// Ledger is the persisted record of live refresh tokens, keyed by jti.
// Rotation and logout both go through Revoke; the delete-returns-boolean
// contract is what serializes concurrent refresh calls for the same token.
type Ledger struct {
	DB *gorm.DB
}

// Add records a freshly issued refresh token. A duplicate jti replaces the
// prior row rather than duplicating it.
func (l Ledger) Add(userID, jti string, expiresAt time.Time) error {
	row := models.RefreshToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}
	return l.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jti"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Revoke deletes the ledger row for jti and reports whether a row was
// actually deleted. A single conditional DELETE, so only one of two
// concurrent rotations of the same token can win.
func (l Ledger) Revoke(jti string) (bool, error) {
	res := l.DB.Where("jti = ?", jti).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RevokeAllForUser drops every live refresh token a user holds. Used when an
// account is deactivated or deleted.
func (l Ledger) RevokeAllForUser(userID string) error {
	return l.DB.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// IsRevoked treats a missing row and an expired row the same: revoked.
func (l Ledger) IsRevoked(jti string) (bool, error) {
	var row models.RefreshToken
	err := l.DB.First(&row, "jti = ?", jti).Error
	if err == gorm.ErrRecordNotFound {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return time.Now().After(row.ExpiresAt), nil
}
