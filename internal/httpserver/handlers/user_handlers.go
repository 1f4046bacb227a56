package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrcore/internal/audit"
	"hrcore/internal/auth"
	"hrcore/internal/models"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if perPage < 1 || perPage > 100 {
			perPage = 10
		}
		var total int64
		db.Model(&models.User{}).Count(&total)
		var users []models.User
		if err := db.Preload("Roles").Order("created_at desc").
			Limit(perPage).Offset((page - 1) * perPage).Find(&users).Error; err != nil {
			lg.Errorw("user list failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not list users")
			return
		}
		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, userResponse(u))
		}
		pages := (total + int64(perPage) - 1) / int64(perPage)
		respondJSON(w, http.StatusOK, map[string]any{
			"users":        out,
			"total":        total,
			"pages":        pages,
			"current_page": page,
		})
	}
}

func GetUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"user": userResponse(u)})
	}
}

func CreateUser(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username  string `json:"username"`
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			IsActive  *bool  `json:"is_active"`
			RoleIDs   []int  `json:"role_ids"`
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
		db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
		if count > 0 {
			respondError(w, http.StatusBadRequest, "username already exists")
			return
		}
		db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
		if count > 0 {
			respondError(w, http.StatusBadRequest, "email already exists")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "could not create user")
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
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if len(req.RoleIDs) > 0 {
			var roles []models.Role
			if err := db.Where("id IN ?", req.RoleIDs).Find(&roles).Error; err == nil {
				u.Roles = roles
			}
		}
		if err := db.Create(&u).Error; err != nil {
			lg.Errorw("user create failed", "error", err)
			respondError(w, http.StatusBadRequest, "could not create user")
			return
		}
		actor := auth.Subject(r.Context())
		rtype := "user"
		rec.Record(&actor, "USER_CREATE", &rtype, &u.ID, map[string]any{"username": u.Username})
		respondJSON(w, http.StatusCreated, map[string]any{
			"message": "user created successfully",
			"user":    userResponse(u),
		})
	}
}

func UpdateUser(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", id).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		var req struct {
			Username  *string `json:"username"`
			Email     *string `json:"email"`
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
			IsActive  *bool   `json:"is_active"`
			Password  *string `json:"password"`
			RoleIDs   []int   `json:"role_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username != nil {
			name := strings.TrimSpace(*req.Username)
			var count int64
			db.Model(&models.User{}).Where("username = ? AND id <> ?", name, id).Count(&count)
			if count > 0 {
				respondError(w, http.StatusBadRequest, "username already exists")
				return
			}
			u.Username = name
		}
		if req.Email != nil {
			email := strings.TrimSpace(strings.ToLower(*req.Email))
			var count int64
			db.Model(&models.User{}).Where("email = ? AND id <> ?", email, id).Count(&count)
			if count > 0 {
				respondError(w, http.StatusBadRequest, "email already exists")
				return
			}
			u.Email = email
		}
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			u.LastName = *req.LastName
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if req.Password != nil && *req.Password != "" {
			if err := auth.ValidatePassword(*req.Password); err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "could not update user")
				return
			}
			u.PasswordHash = hash
		}
		// Associations are saved through Replace below, not through Save;
		// saving the stale preloaded slice would resurrect removed roles.
		if err := db.Omit(clause.Associations).Save(&u).Error; err != nil {
			lg.Errorw("user update failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not update user")
			return
		}
		if req.RoleIDs != nil {
			var roles []models.Role
			if err := db.Where("id IN ?", req.RoleIDs).Find(&roles).Error; err != nil {
				respondError(w, http.StatusInternalServerError, "could not update user")
				return
			}
			if err := db.Model(&u).Association("Roles").Replace(roles); err != nil {
				lg.Errorw("user role replace failed", "error", err)
				respondError(w, http.StatusInternalServerError, "could not update user")
				return
			}
			u.Roles = roles
		}
		// A deactivated account keeps no live sessions.
		if req.IsActive != nil && !*req.IsActive {
			if err := (auth.Ledger{DB: db}).RevokeAllForUser(u.ID); err != nil {
				lg.Errorw("refresh revoke on deactivate failed", "error", err)
			}
		}
		actor := auth.Subject(r.Context())
		rtype := "user"
		rec.Record(&actor, "USER_UPDATE", &rtype, &u.ID, map[string]any{"username": u.Username})
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "user updated successfully",
			"user":    userResponse(u),
		})
	}
}

// DeleteUser hard-deletes an account. Self-delete is refused; deactivation
// via update is the preferred disable path. Audit history stays behind with
// its user reference nulled by the FK, not cascaded away.
func DeleteUser(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		actor := auth.Subject(r.Context())
		if actor == id {
			respondError(w, http.StatusBadRequest, "cannot delete your own account")
			return
		}
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := (auth.Ledger{DB: tx}).RevokeAllForUser(id); err != nil {
				return err
			}
			if err := tx.Model(&u).Association("Roles").Clear(); err != nil {
				return err
			}
			return tx.Delete(&u).Error
		}); err != nil {
			lg.Errorw("user delete failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not delete user")
			return
		}
		rtype := "user"
		rec.Record(&actor, "USER_DELETE", &rtype, &id, map[string]any{"username": u.Username})
		respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted successfully"})
	}
}

func AssignRole(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		var req struct {
			RoleID int `json:"role_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoleID == 0 {
			respondError(w, http.StatusBadRequest, "role_id is required")
			return
		}
		var role models.Role
		if err := db.First(&role, "id = ?", req.RoleID).Error; err != nil {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		for _, existing := range u.Roles {
			if existing.ID == role.ID {
				respondError(w, http.StatusBadRequest, "user already has this role")
				return
			}
		}
		if err := db.Model(&u).Association("Roles").Append(&role); err != nil {
			lg.Errorw("role assign failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not assign role")
			return
		}
		u.Roles = append(u.Roles, role)
		actor := auth.Subject(r.Context())
		rtype := "user"
		rec.Record(&actor, "ROLE_ASSIGN", &rtype, &u.ID, map[string]any{"role": role.Name})
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "role " + role.Name + " assigned to user " + u.Username,
			"user":    userResponse(u),
		})
	}
}

func RemoveRole(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		roleID, err := strconv.Atoi(chi.URLParam(r, "role_id"))
		if err != nil {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		var role models.Role
		if err := db.First(&role, "id = ?", roleID).Error; err != nil {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		held := false
		for _, existing := range u.Roles {
			if existing.ID == role.ID {
				held = true
				break
			}
		}
		if !held {
			respondError(w, http.StatusBadRequest, "user does not have this role")
			return
		}
		if err := db.Model(&u).Association("Roles").Delete(&role); err != nil {
			lg.Errorw("role remove failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not remove role")
			return
		}
		actor := auth.Subject(r.Context())
		rtype := "user"
		rec.Record(&actor, "ROLE_REMOVE", &rtype, &u.ID, map[string]any{"role": role.Name})
		respondJSON(w, http.StatusOK, map[string]string{
			"message": "role " + role.Name + " removed from user " + u.Username,
		})
	}
}
