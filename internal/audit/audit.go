// Package audit records security-relevant events. Recording is
// fire-and-forget: a failed insert is logged and never aborts the caller.
package audit

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrcore/internal/models"
)

type Recorder struct {
	DB *gorm.DB
	Lg *zap.SugaredLogger
}

// Record writes one audit row. userID is nil for system events; resourceType
// and resourceID are optional; details may be nil.
func (a Recorder) Record(userID *string, action string, resourceType, resourceID *string, details map[string]any) {
	entry := models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      models.JSONBOf(details),
	}
	if err := a.DB.Create(&entry).Error; err != nil {
		a.Lg.Errorw("audit record failed", "action", action, "error", err)
	}
}
