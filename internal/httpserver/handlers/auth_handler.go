package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrcore/internal/audit"
	"hrcore/internal/auth"
	"hrcore/internal/mail"
	"hrcore/internal/models"
)

// Auth bundles the collaborators of the session-lifecycle endpoints.
type Auth struct {
	DB       *gorm.DB
	Lg       *zap.SugaredLogger
	Issuer   auth.Issuer
	Ledger   auth.Ledger
	Revoked  auth.RevocationList
	Audit    audit.Recorder
	Mailer   mail.Mailer
	ResetTTL time.Duration
}

const defaultRole = "Employee"

func userResponse(u models.User) map[string]any {
	roles := make([]map[string]any, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, map[string]any{"id": r.ID, "name": r.Name})
	}
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_active":  u.IsActive,
		"roles":      roles,
	}
}

func (a Auth) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username  string `json:"username"`
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		switch {
		case req.Username == "":
			respondError(w, http.StatusBadRequest, "username is required")
			return
		case req.Email == "":
			respondError(w, http.StatusBadRequest, "email is required")
			return
		case req.Password == "":
			respondError(w, http.StatusBadRequest, "password is required")
			return
		}
		if err := auth.ValidatePassword(req.Password); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var count int64
		a.DB.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
		if count > 0 {
			respondError(w, http.StatusBadRequest, "username already exists")
			return
		}
		a.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
		if count > 0 {
			respondError(w, http.StatusBadRequest, "email already exists")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		u := models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			IsActive:     true,
		}
		var employee models.Role
		if err := a.DB.First(&employee, "name = ?", defaultRole).Error; err == nil {
			u.Roles = []models.Role{employee}
		}
		if err := a.DB.Create(&u).Error; err != nil {
			a.Lg.Errorw("register failed", "error", err)
			respondError(w, http.StatusBadRequest, "registration failed")
			return
		}
		a.Audit.Record(&u.ID, "REGISTER", nil, nil, map[string]any{"username": u.Username})
		respondJSON(w, http.StatusCreated, map[string]any{
			"message": "user registered successfully",
			"user":    userResponse(u),
		})
	}
}

func (a Auth) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "username and password are required")
			return
		}
		var u models.User
		err := a.DB.Preload("Roles").
			Where("username = ? OR email = ?", req.Username, strings.ToLower(req.Username)).
			First(&u).Error
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		// Inactive accounts fail exactly like a bad password.
		if auth.CheckPassword(u.PasswordHash, req.Password) != nil || !u.IsActive {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		access, err := a.Issuer.IssueAccess(u.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "login failed")
			return
		}
		refresh, err := a.Issuer.IssueRefresh(u.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "login failed")
			return
		}
		if err := a.Ledger.Add(u.ID, refresh.JTI, refresh.ExpiresAt); err != nil {
			a.Lg.Errorw("refresh ledger insert failed", "error", err)
			respondError(w, http.StatusInternalServerError, "login failed")
			return
		}
		a.Audit.Record(&u.ID, "LOGIN", nil, nil, map[string]any{"username": u.Username})
		respondJSON(w, http.StatusOK, map[string]any{
			"message":       "login successful",
			"access_token":  access.Raw,
			"refresh_token": refresh.Raw,
			"user":          userResponse(u),
		})
	}
}

// Refresh rotates a refresh token. The presented jti is deleted from the
// ledger first; if nothing was deleted the token was already rotated or
// revoked and the whole call fails. Delete and re-insert run in one
// transaction so a half-rotated state never survives.
func (a Auth) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "missing credentials")
			return
		}
		claims, err := a.Issuer.Verify(strings.TrimPrefix(h, "Bearer "), auth.TypeRefresh)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		var access, refresh auth.IssuedToken
		txErr := a.DB.Transaction(func(tx *gorm.DB) error {
			ledger := auth.Ledger{DB: tx}
			deleted, err := ledger.Revoke(claims.JTI)
			if err != nil {
				return err
			}
			if !deleted {
				return auth.ErrInvalidToken
			}
			var u models.User
			if err := tx.First(&u, "id = ?", claims.Subject).Error; err != nil || !u.IsActive {
				return auth.ErrInvalidToken
			}
			if access, err = a.Issuer.IssueAccess(u.ID); err != nil {
				return err
			}
			if refresh, err = a.Issuer.IssueRefresh(u.ID); err != nil {
				return err
			}
			return ledger.Add(u.ID, refresh.JTI, refresh.ExpiresAt)
		})
		if errors.Is(txErr, auth.ErrInvalidToken) {
			respondError(w, http.StatusUnauthorized, "invalid or revoked token")
			return
		}
		if txErr != nil {
			// Fail closed on any storage ambiguity.
			a.Lg.Errorw("token rotation failed", "error", txErr)
			respondError(w, http.StatusInternalServerError, "token refresh failed")
			return
		}
		a.Audit.Record(&claims.Subject, "TOKEN_REFRESH", nil, nil, nil)
		respondJSON(w, http.StatusOK, map[string]any{
			"access_token":  access.Raw,
			"refresh_token": refresh.Raw,
		})
	}
}

// Logout blacklists the presented access token until its natural expiry and,
// when the body carries the session's refresh token, drops its ledger row.
func (a Auth) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		a.Revoked.Revoke(claims.JTI, claims.ExpiresAt)

		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
			if rc, err := a.Issuer.Verify(req.RefreshToken, auth.TypeRefresh); err == nil && rc.Subject == claims.Subject {
				if _, err := a.Ledger.Revoke(rc.JTI); err != nil {
					a.Lg.Errorw("refresh revoke on logout failed", "error", err)
				}
			}
		}
		a.Audit.Record(&claims.Subject, "LOGOUT", nil, nil, nil)
		respondJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
	}
}

func (a Auth) GetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := a.DB.Preload("Roles").First(&u, "id = ?", auth.Subject(r.Context())).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"user": userResponse(u)})
	}
}

func (a Auth) UpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		var u models.User
		if err := a.DB.Preload("Roles").First(&u, "id = ?", uid).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		var req struct {
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
			Email     *string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			u.LastName = *req.LastName
		}
		if req.Email != nil {
			email := strings.TrimSpace(strings.ToLower(*req.Email))
			var count int64
			a.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, uid).Count(&count)
			if count > 0 {
				respondError(w, http.StatusBadRequest, "email already exists")
				return
			}
			u.Email = email
		}
		if err := a.DB.Omit(clause.Associations).Save(&u).Error; err != nil {
			a.Lg.Errorw("profile update failed", "error", err)
			respondError(w, http.StatusInternalServerError, "profile update failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "profile updated successfully",
			"user":    userResponse(u),
		})
	}
}

func (a Auth) ChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		var u models.User
		if err := a.DB.First(&u, "id = ?", uid).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CurrentPassword == "" || req.NewPassword == "" {
			respondError(w, http.StatusBadRequest, "current password and new password are required")
			return
		}
		if auth.CheckPassword(u.PasswordHash, req.CurrentPassword) != nil {
			respondError(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		if err := auth.ValidatePassword(req.NewPassword); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "password change failed")
			return
		}
		if err := a.DB.Model(&u).Update("password_hash", hash).Error; err != nil {
			a.Lg.Errorw("password change failed", "error", err)
			respondError(w, http.StatusInternalServerError, "password change failed")
			return
		}
		a.Audit.Record(&uid, "PASSWORD_CHANGE", nil, nil, nil)
		respondJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
	}
}

// ForgotPassword always answers with the same generic message so responses
// cannot be used to probe which emails exist.
func (a Auth) ForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
			respondError(w, http.StatusBadRequest, "email is required")
			return
		}
		generic := map[string]string{"message": "if the email exists, a reset token has been sent"}

		var u models.User
		if err := a.DB.First(&u, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err != nil {
			respondJSON(w, http.StatusOK, generic)
			return
		}
		token := models.PasswordResetToken{
			UserID:    u.ID,
			Token:     uuid.NewString(),
			ExpiresAt: time.Now().Add(a.ResetTTL),
		}
		if err := a.DB.Create(&token).Error; err != nil {
			a.Lg.Errorw("reset token create failed", "error", err)
			respondJSON(w, http.StatusOK, generic)
			return
		}
		if err := a.Mailer.SendPasswordReset(u.Email, token.Token); err != nil {
			a.Lg.Errorw("reset token delivery failed", "error", err)
		}
		a.Audit.Record(&u.ID, "PASSWORD_RESET_REQUEST", nil, nil, nil)
		respondJSON(w, http.StatusOK, generic)
	}
}

// ResetPassword spends the token before touching the password: the
// conditional update on used=false is the replay guard, and a failed
// password write afterwards leaves the token spent rather than reusable.
func (a Auth) ResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
			respondError(w, http.StatusBadRequest, "token and new password are required")
			return
		}
		if err := auth.ValidatePassword(req.NewPassword); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var token models.PasswordResetToken
		if err := a.DB.First(&token, "token = ?", req.Token).Error; err != nil {
			respondError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		if token.Used || time.Now().After(token.ExpiresAt) {
			respondError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		res := a.DB.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used = ?", token.ID, false).
			Update("used", true)
		if res.Error != nil || res.RowsAffected == 0 {
			respondError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "password reset failed")
			return
		}
		if err := a.DB.Model(&models.User{}).Where("id = ?", token.UserID).
			Update("password_hash", hash).Error; err != nil {
			a.Lg.Errorw("password reset write failed", "error", err)
			respondError(w, http.StatusInternalServerError, "password reset failed")
			return
		}
		a.Audit.Record(&token.UserID, "PASSWORD_RESET", nil, nil, nil)
		respondJSON(w, http.StatusOK, map[string]string{"message": "password reset successfully"})
	}
}
