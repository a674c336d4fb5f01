package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityLog is the secondary audit collection. Writes to it are
// fire-and-forget: a failed activity write must never fail the
// operation it describes.
type ActivityLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType string         `gorm:"column:entity_type;index;not null" json:"entityType"`
	EntityID   string         `gorm:"column:entity_id;index;not null" json:"entityId"`
	Action     string         `gorm:"column:action;not null" json:"action"`
	ActorID    string         `gorm:"column:actor_id" json:"actorId"`
	ActorName  string         `gorm:"column:actor_name" json:"actorName"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
