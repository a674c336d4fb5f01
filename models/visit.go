package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Visit types.
const (
	VisitTypeRegular   = "regular"
	VisitTypeEmergency = "emergency"
)

// Visit statuses.
const (
	VisitStatusScheduled   = "scheduled"
	VisitStatusInProgress  = "in_progress"
	VisitStatusCompleted   = "completed"
	VisitStatusCancelled   = "cancelled"
	VisitStatusRescheduled = "rescheduled"
)

// Emergency priorities.
const (
	VisitPriorityLow      = "low"
	VisitPriorityMedium   = "medium"
	VisitPriorityHigh     = "high"
	VisitPriorityCritical = "critical"
)

// Visit is a single scheduled or completed service engagement at a branch.
//
// All calendar dates on a visit are stored in the canonical DD-Mon-YYYY
// text form (see utils.FormatDate); CreatedAt/UpdatedAt stay native
// timestamps because they are storage metadata, not planning dates.
type Visit struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VisitID string    `gorm:"column:visit_id;uniqueIndex;not null" json:"visitId"`

	BranchID   uuid.UUID  `gorm:"type:uuid;column:branch_id;index;not null" json:"branchId"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;column:company_id;index;not null" json:"companyId"`
	ContractID *uuid.UUID `gorm:"type:uuid;column:contract_id;index" json:"contractId,omitempty"`

	Type   string `gorm:"column:type;not null;default:regular" json:"type"`
	Status string `gorm:"column:status;not null;default:scheduled" json:"status"`

	ScheduledDate string  `gorm:"column:scheduled_date;not null;index" json:"scheduledDate"`
	ScheduledTime *string `gorm:"column:scheduled_time" json:"scheduledTime,omitempty"`
	CompletedDate *string `gorm:"column:completed_date" json:"completedDate,omitempty"`
	CompletedTime *string `gorm:"column:completed_time" json:"completedTime,omitempty"`

	// Duration in hours.
	Duration *float64 `gorm:"column:duration" json:"duration,omitempty"`

	AssignedTeam       *string `gorm:"column:assigned_team"       json:"assignedTeam,omitempty"`
	AssignedTechnician *string `gorm:"column:assigned_technician" json:"assignedTechnician,omitempty"`

	Services StringList `gorm:"column:services;type:jsonb" json:"services"`

	// Notes is append-only in practice: reschedules push the reason as
	// the newest entry.
	Notes StringList `gorm:"column:notes;type:jsonb" json:"notes,omitempty"`

	// Results holds the free-form outcome (issues found, recommendations).
	Results datatypes.JSON `gorm:"column:results;type:jsonb" json:"results,omitempty"`

	Attachments AttachmentList `gorm:"column:attachments;type:jsonb" json:"attachments"`

	// Emergency-only fields. An emergency visit always carries priority,
	// reporter and at least one complaint; its VisitID doubles as the
	// ticket number.
	Priority   *string    `gorm:"column:priority"    json:"priority,omitempty"`
	ReportedBy *string    `gorm:"column:reported_by" json:"reportedBy,omitempty"`
	Complaints StringList `gorm:"column:complaints;type:jsonb" json:"complaints,omitempty"`

	IsArchived bool `gorm:"column:is_archived;default:false" json:"isArchived"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	CreatedBy string         `gorm:"column:created_by" json:"createdBy"`
	UpdatedBy *string        `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Display-only denormalized names, filled by the planning engine when
	// it joins against the company/branch lookup lists.
	CompanyName string `gorm:"-" json:"companyName,omitempty"`
	BranchName  string `gorm:"-" json:"branchName,omitempty"`
}

func (Visit) TableName() string { return "visits" }

// IsEmergency reports whether the visit came in through emergency intake.
func (v *Visit) IsEmergency() bool { return v.Type == VisitTypeEmergency }

// Attachment is uploaded-file metadata kept on the visit document.
// The files themselves live outside this service.
type Attachment struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	UploadedBy string `json:"uploadedBy"`
	UploadedAt string `json:"uploadedAt"`
}

// AttachmentList stores visit attachments as jsonb.
type AttachmentList []Attachment

func (l AttachmentList) Value() (driver.Value, error) { return jsonbValue([]Attachment(l)) }

func (l *AttachmentList) Scan(src interface{}) error {
	return jsonbScan(src, (*[]Attachment)(l))
}
