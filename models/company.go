package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a customer organization that holds maintenance contracts.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID string    `gorm:"column:company_id;uniqueIndex;not null" json:"companyId"`
	Name      string    `gorm:"column:name;not null"                   json:"name"`
	NameAr    *string   `gorm:"column:name_ar"                         json:"nameAr,omitempty"`
	Email     *string   `gorm:"column:email"                           json:"email,omitempty"`
	Phone     *string   `gorm:"column:phone"                           json:"phone,omitempty"`
	Address   *string   `gorm:"column:address"                         json:"address,omitempty"`

	IsArchived bool `gorm:"column:is_archived;default:false" json:"isArchived"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	CreatedBy string         `gorm:"column:created_by" json:"createdBy"`
	UpdatedBy *string        `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Company) TableName() string { return "companies" }

// Branch is a physical customer site where visits take place.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BranchID  string    `gorm:"column:branch_id;uniqueIndex;not null" json:"branchId"`
	CompanyID uuid.UUID `gorm:"type:uuid;column:company_id;index;not null" json:"companyId"`
	Company   *Company  `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Name          string  `gorm:"column:name;not null" json:"name"`
	City          string  `gorm:"column:city;not null" json:"city"`
	Address       *string `gorm:"column:address"        json:"address,omitempty"`
	ContactPerson *string `gorm:"column:contact_person" json:"contactPerson,omitempty"`
	ContactPhone  *string `gorm:"column:contact_phone"  json:"contactPhone,omitempty"`

	// Optional site coordinates, used to suggest the closest team on
	// emergency intake.
	Latitude  *float64 `gorm:"column:latitude"  json:"latitude,omitempty"`
	Longitude *float64 `gorm:"column:longitude" json:"longitude,omitempty"`

	AssignedTeam *string `gorm:"column:assigned_team" json:"assignedTeam,omitempty"`

	IsArchived bool `gorm:"column:is_archived;default:false" json:"isArchived"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	CreatedBy string         `gorm:"column:created_by" json:"createdBy"`
	UpdatedBy *string        `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Branch) TableName() string { return "branches" }
