// Package seed bootstraps the permission catalog, the stock roles and the
// default admin account. Every step is idempotent so it runs on each start.
package seed

import (
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrcore/internal/auth"
	"hrcore/internal/models"
)

var permissions = []models.Permission{
	{Name: "user_read", Description: "Read user info"},
	{Name: "user_write", Description: "Create/update users"},
	{Name: "user_delete", Description: "Delete users"},
	{Name: "role_read", Description: "Read roles"},
	{Name: "role_write", Description: "Create/update roles"},
	{Name: "role_delete", Description: "Delete roles"},
	{Name: "permission_read", Description: "Read permissions"},
	{Name: "permission_write", Description: "Create/update permissions"},
	{Name: "permission_delete", Description: "Delete permissions"},
	{Name: "task_read", Description: "Read tasks"},
	{Name: "task_write", Description: "Create/update tasks"},
	{Name: "task_delete", Description: "Delete tasks"},
	{Name: "leave_read", Description: "Read leaves"},
	{Name: "leave_write", Description: "Create/update leaves"},
	{Name: "leave_delete", Description: "Delete leaves"},
	{Name: "leave_approve", Description: "Approve/reject leaves"},
}

var roleGrants = map[string][]string{
	"Admin": nil, // all permissions
	"HR": {
		"user_read", "user_write", "role_read",
		"task_read", "task_write", "task_delete",
		"leave_read", "leave_write", "leave_approve",
	},
	"Employee": {"user_read", "task_read", "leave_read", "leave_write"},
}

var roleDescriptions = map[string]string{
	"Admin":    "Full access",
	"HR":       "HR manager",
	"Employee": "Regular employee",
}

// Run creates missing permissions, roles and grants, and a default admin
// account when no user named admin exists yet.
func Run(db *gorm.DB, lg *zap.SugaredLogger) error {
	for _, p := range permissions {
		var count int64
		db.Model(&models.Permission{}).Where("name = ?", p.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&p).Error; err != nil {
				return err
			}
		}
	}

	for name, grants := range roleGrants {
		var role models.Role
		err := db.First(&role, "name = ?", name).Error
		if err == gorm.ErrRecordNotFound {
			role = models.Role{Name: name, Description: roleDescriptions[name]}
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		var perms []models.Permission
		q := db
		if grants != nil {
			q = q.Where("name IN ?", grants)
		}
		if err := q.Find(&perms).Error; err != nil {
			return err
		}
		if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:     "admin",
		Email:        "admin@hrms.local",
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Admin",
		IsActive:     true,
	}
	var adminRole models.Role
	if err := db.First(&adminRole, "name = ?", "Admin").Error; err == nil {
		admin.Roles = []models.Role{adminRole}
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	lg.Infow("seeded default admin", "username", "admin", "email", admin.Email)
	return nil
}
