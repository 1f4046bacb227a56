package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrcore/internal/models"
)

func TestChangePassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Secret123!")
	access, _ := env.login(t, "alice", "Secret123!")

	rec := env.do(t, http.MethodPost, "/auth/change-password", access, map[string]string{
		"current_password": "Wrong123!",
		"new_password":     "Fresh456!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/change-password", access, map[string]string{
		"current_password": "Secret123!",
		"new_password":     "weak",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/change-password", access, map[string]string{
		"current_password": "Secret123!",
		"new_password":     "Fresh456!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "Secret123!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.login(t, "alice", "Fresh456!")
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Secret123!")

	// Unknown emails get the same generic answer and no token.
	rec := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "ghost@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.mailer.tokens)

	rec = env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "alice@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.mailer.tokens, 1)
	token := env.mailer.tokens[0]

	// Weak replacement password is rejected before the token is spent.
	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": token, "new_password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": token, "new_password": "Fresh456!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.login(t, "alice", "Fresh456!")

	// The token is single-use.
	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": token, "new_password": "Again789!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": "no-such-token", "new_password": "Again789!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Secret123!")
	env.register(t, "bob", "bob@x.com", "Secret123!")
	access, _ := env.login(t, "alice", "Secret123!")

	rec := env.do(t, http.MethodPut, "/auth/profile", access, map[string]string{
		"first_name": "Alice",
		"last_name":  "Smith",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Alice", user["first_name"])

	// Someone else's email cannot be claimed.
	rec = env.do(t, http.MethodPut, "/auth/profile", access, map[string]string{"email": "bob@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditLogVisibility(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Secret123!")
	aliceAccess, _ := env.login(t, "alice", "Secret123!")
	adminAccess, _ := env.login(t, "admin", "admin123")

	rec := env.do(t, http.MethodGet, "/audit-logs", aliceAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode(t, rec)["audit_logs"].([]any)
	require.NotEmpty(t, logs)
	var alice models.User
	require.NoError(t, env.db.First(&alice, "username = ?", "alice").Error)
	for _, entry := range logs {
		assert.Equal(t, alice.ID, entry.(map[string]any)["user_id"])
	}

	// Only Admins can read everyone's history.
	rec = env.do(t, http.MethodGet, "/audit-logs?all=1", aliceAccess, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/audit-logs?all=1", adminAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode(t, rec)["audit_logs"].([]any)
	actions := make([]string, 0, len(all))
	for _, entry := range all {
		actions = append(actions, entry.(map[string]any)["action"].(string))
	}
	assert.Contains(t, actions, "LOGIN")
	assert.Contains(t, actions, "REGISTER")
}

func TestUserAdminCRUD(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	adminAccess, _ := env.login(t, "admin", "admin123")

	rec := env.do(t, http.MethodPost, "/users", adminAccess, map[string]any{
		"username": "carol",
		"email":    "carol@x.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	carol := decode(t, rec)["user"].(map[string]any)
	carolID := carol["id"].(string)

	rec = env.do(t, http.MethodGet, "/users?page=1&per_page=5", adminAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decode(t, rec)
	assert.GreaterOrEqual(t, listing["total"].(float64), float64(2))

	rec = env.do(t, http.MethodGet, "/users/"+carolID, adminAccess, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Deactivation cuts carol's sessions off.
	env.login(t, "carol", "Secret123!")
	rec = env.do(t, http.MethodPut, "/users/"+carolID, adminAccess, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "carol", "password": "Secret123!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var count int64
	env.db.Model(&models.RefreshToken{}).Where("user_id = ?", carolID).Count(&count)
	assert.Equal(t, int64(0), count, "deactivation drops live refresh tokens")

	// Self-delete is refused.
	var admin models.User
	require.NoError(t, env.db.First(&admin, "username = ?", "admin").Error)
	rec = env.do(t, http.MethodDelete, "/users/"+admin.ID, adminAccess, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/users/"+carolID, adminAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/users/"+carolID, adminAccess, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
