package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType is one entry of the fixed catalog of maintenance services
// a contract batch can enable. Seeded at startup; rows are matched by
// code so reseeding is idempotent.
type ServiceType struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	NameAr      *string   `gorm:"column:name_ar" json:"nameAr,omitempty"`
	Description string    `gorm:"column:description" json:"description"`
	IsActive    bool      `gorm:"column:is_active;default:true" json:"isActive"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ServiceType) TableName() string { return "service_types" }
