// Package rbac resolves effective permissions from the persisted
// user/role/permission graph. Results are never cached: a permission check
// reflects the graph at the moment it runs.
package rbac

import (
	"gorm.io/gorm"

	"hrcore/internal/models"
)

// EffectivePermissions returns the union of permission names across all of
// the user's roles. A user with no roles gets an empty set.
func EffectivePermissions(db *gorm.DB, userID string) ([]string, error) {
	var names []string
	err := db.Model(&models.Permission{}).
		Distinct().
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID).
		Pluck("permissions.name", &names).Error
	return names, err
}

func HasPermission(db *gorm.DB, userID, name string) (bool, error) {
	var count int64
	err := db.Model(&models.Permission{}).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ? AND permissions.name = ?", userID, name).
		Count(&count).Error
	return count > 0, err
}

func HasAnyPermission(db *gorm.DB, userID string, names ...string) (bool, error) {
	var count int64
	err := db.Model(&models.Permission{}).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ? AND permissions.name IN ?", userID, names).
		Count(&count).Error
	return count > 0, err
}

func HasRole(db *gorm.DB, userID, roleName string) (bool, error) {
	var count int64
	err := db.Model(&models.Role{}).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ? AND roles.name = ?", userID, roleName).
		Count(&count).Error
	return count > 0, err
}
