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

func roleParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}

func ListRoles(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var roles []models.Role
		if err := db.Preload("Permissions").Order("id").Find(&roles).Error; err != nil {
			lg.Errorw("role list failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not list roles")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
	}
}

func GetRole(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roleParam(r)
		if !ok {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		var role models.Role
		if err := db.Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"role": role})
	}
}

func CreateRole(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name          string `json:"name"`
			Description   string `json:"description"`
			PermissionIDs []int  `json:"permission_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			respondError(w, http.StatusBadRequest, "role name is required")
			return
		}
		var count int64
		db.Model(&models.Role{}).Where("name = ?", req.Name).Count(&count)
		if count > 0 {
			respondError(w, http.StatusBadRequest, "role already exists")
			return
		}
		role := models.Role{Name: req.Name, Description: req.Description}
		if len(req.PermissionIDs) > 0 {
			var perms []models.Permission
			if err := db.Where("id IN ?", req.PermissionIDs).Find(&perms).Error; err == nil {
				role.Permissions = perms
			}
		}
		if err := db.Create(&role).Error; err != nil {
			lg.Errorw("role create failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not create role")
			return
		}
		uid := auth.Subject(r.Context())
		rid := strconv.Itoa(role.ID)
		rtype := "role"
		rec.Record(&uid, "ROLE_CREATE", &rtype, &rid, map[string]any{"name": role.Name})
		respondJSON(w, http.StatusCreated, map[string]any{
			"message": "role created successfully",
			"role":    role,
		})
	}
}

func UpdateRole(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roleParam(r)
		if !ok {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		var role models.Role
		if err := db.Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		var req struct {
			Name          *string `json:"name"`
			Description   *string `json:"description"`
			PermissionIDs []int   `json:"permission_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			var count int64
			db.Model(&models.Role{}).Where("name = ? AND id <> ?", name, id).Count(&count)
			if count > 0 {
				respondError(w, http.StatusBadRequest, "role name already exists")
				return
			}
			role.Name = name
		}
		if req.Description != nil {
			role.Description = *req.Description
		}
		// Permissions change through Replace; Save must not re-save the
		// stale preloaded slice.
		if err := db.Omit(clause.Associations).Save(&role).Error; err != nil {
			lg.Errorw("role update failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not update role")
			return
		}
		if req.PermissionIDs != nil {
			var perms []models.Permission
			if err := db.Where("id IN ?", req.PermissionIDs).Find(&perms).Error; err != nil {
				respondError(w, http.StatusInternalServerError, "could not update role")
				return
			}
			if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
				lg.Errorw("role permission replace failed", "error", err)
				respondError(w, http.StatusInternalServerError, "could not update role")
				return
			}
			role.Permissions = perms
		}
		uid := auth.Subject(r.Context())
		rid := strconv.Itoa(role.ID)
		rtype := "role"
		rec.Record(&uid, "ROLE_UPDATE", &rtype, &rid, map[string]any{"name": role.Name})
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "role updated successfully",
			"role":    role,
		})
	}
}

// DeleteRole refuses to delete a role still assigned to users. The caller
// must reassign or empty it first.
func DeleteRole(db *gorm.DB, lg *zap.SugaredLogger, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := roleParam(r)
		if !ok {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		var role models.Role
		if err := db.First(&role, "id = ?", id).Error; err != nil {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		assigned := db.Model(&role).Association("Users").Count()
		if assigned > 0 {
			respondError(w, http.StatusConflict,
				"cannot delete role, it is assigned to "+strconv.FormatInt(assigned, 10)+" user(s)")
			return
		}
		if err := db.Model(&role).Association("Permissions").Clear(); err != nil {
			lg.Errorw("role permission clear failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not delete role")
			return
		}
		if err := db.Delete(&role).Error; err != nil {
			lg.Errorw("role delete failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not delete role")
			return
		}
		uid := auth.Subject(r.Context())
		rid := strconv.Itoa(id)
		rtype := "role"
		rec.Record(&uid, "ROLE_DELETE", &rtype, &rid, map[string]any{"name": role.Name})
		respondJSON(w, http.StatusOK, map[string]string{"message": "role deleted successfully"})
	}
}

// ListPermissions exposes the seeded permission catalog, read-only.
func ListPermissions(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var perms []models.Permission
		if err := db.Order("id").Find(&perms).Error; err != nil {
			lg.Errorw("permission list failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not list permissions")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"permissions": perms})
	}
}
