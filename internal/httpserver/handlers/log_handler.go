package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrcore/internal/auth"
	"hrcore/internal/models"
	"hrcore/internal/rbac"
)

// AuditLogs returns recent audit entries. Regular users see their own;
// holders of the Admin role can pass ?all=1 to see recent entries for
// everyone.
func AuditLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		all := r.URL.Query().Get("all") == "1"
		var logs []models.AuditLog
		if all {
			isAdmin, err := rbac.HasRole(db, uid, "Admin")
			if err != nil {
				respondError(w, http.StatusInternalServerError, "could not list audit logs")
				return
			}
			if !isAdmin {
				respondError(w, http.StatusForbidden, "insufficient permissions, required role: Admin")
				return
			}
			if err := db.Order("created_at desc").Limit(200).Find(&logs).Error; err != nil {
				lg.Errorw("audit list failed", "error", err)
				respondError(w, http.StatusInternalServerError, "could not list audit logs")
				return
			}
		} else {
			if err := db.Where("user_id = ?", uid).Order("created_at desc").Limit(200).Find(&logs).Error; err != nil {
				lg.Errorw("audit list failed", "error", err)
				respondError(w, http.StatusInternalServerError, "could not list audit logs")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
	}
}
