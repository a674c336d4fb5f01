package handlers

import (
	"encoding/json"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
)

// logActivity writes to the secondary audit collection. It is
// fire-and-forget: failures are logged for observability but never
// surfaced to or retried for the operation that triggered them.
func logActivity(db *gorm.DB, entityType, entityID, action, actorID, actorName string, details map[string]interface{}) {
	var detailsJSON datatypes.JSON
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = datatypes.JSON(b)
		}
	}

	entry := models.ActivityLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		ActorName:  actorName,
		Details:    detailsJSON,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("⚠️  activity log write failed (%s %s %s): %v", entityType, entityID, action, err)
	}
}
