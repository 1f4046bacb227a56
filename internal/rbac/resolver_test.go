package rbac

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hrcore/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Permission{}, &models.Role{}, &models.User{}))
	return db
}

func createUserWithRoles(t *testing.T, db *gorm.DB, roles ...models.Role) models.User {
	t.Helper()
	u := models.User{
		Username:     "worker",
		Email:        "worker@hrms.local",
		PasswordHash: "x",
		IsActive:     true,
		Roles:        roles,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestEffectivePermissionsUnionAcrossRoles(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	read := models.Permission{Name: "task_read"}
	write := models.Permission{Name: "task_write"}
	approve := models.Permission{Name: "leave_approve"}
	require.NoError(t, db.Create(&[]*models.Permission{&read, &write, &approve}).Error)

	r1 := models.Role{Name: "Reader", Permissions: []models.Permission{read}}
	r2 := models.Role{Name: "Writer", Permissions: []models.Permission{read, write}}
	require.NoError(t, db.Create(&[]*models.Role{&r1, &r2}).Error)

	u := createUserWithRoles(t, db, r1, r2)

	perms, err := EffectivePermissions(db, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"task_read", "task_write"}, perms)
}

func TestHasPermission(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	write := models.Permission{Name: "task_write"}
	require.NoError(t, db.Create(&write).Error)
	role := models.Role{Name: "Manager", Permissions: []models.Permission{write}}
	require.NoError(t, db.Create(&role).Error)
	u := createUserWithRoles(t, db, role)

	ok, err := HasPermission(db, u.ID, "task_write")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasPermission(db, u.ID, "task_delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasAnyPermission(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	read := models.Permission{Name: "task_read"}
	require.NoError(t, db.Create(&read).Error)
	role := models.Role{Name: "Reader", Permissions: []models.Permission{read}}
	require.NoError(t, db.Create(&role).Error)
	u := createUserWithRoles(t, db, role)

	ok, err := HasAnyPermission(db, u.ID, "task_write", "task_read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasAnyPermission(db, u.ID, "task_write", "task_delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestZeroRolesMeansNoPermissions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	perm := models.Permission{Name: "task_read"}
	require.NoError(t, db.Create(&perm).Error)
	u := createUserWithRoles(t, db)

	perms, err := EffectivePermissions(db, u.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	ok, err := HasPermission(db, u.ID, "task_read")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemovingRolesEmptiesPermissionSet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	write := models.Permission{Name: "task_write"}
	require.NoError(t, db.Create(&write).Error)
	role := models.Role{Name: "Manager", Permissions: []models.Permission{write}}
	require.NoError(t, db.Create(&role).Error)
	u := createUserWithRoles(t, db, role)

	require.NoError(t, db.Model(&u).Association("Roles").Clear())

	perms, err := EffectivePermissions(db, u.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestHasRole(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	role := models.Role{Name: "Admin"}
	require.NoError(t, db.Create(&role).Error)
	u := createUserWithRoles(t, db, role)

	ok, err := HasRole(db, u.ID, "Admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasRole(db, u.ID, "HR")
	require.NoError(t, err)
	assert.False(t, ok)
}
