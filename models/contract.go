package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Contract statuses.
const (
	ContractStatusActive   = "active"
	ContractStatusExpired  = "expired"
	ContractStatusArchived = "archived"
)

// Contract history actions.
const (
	HistoryActionCreated       = "created"
	HistoryActionRenewed       = "renewed"
	HistoryActionArchived      = "archived"
	HistoryActionAddendumAdded = "addendum_added"
	HistoryActionUpdated       = "updated"
)

// Contract is the recurring-service agreement visits are generated
// against. Dates are canonical DD-Mon-YYYY text; exactly one of
// ContractEndDate or ContractPeriodMonths must be resolvable for the
// duration to be computed.
type Contract struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractID string    `gorm:"column:contract_id;uniqueIndex;not null" json:"contractId"`

	CompanyID uuid.UUID `gorm:"type:uuid;column:company_id;index;not null" json:"companyId"`
	Company   *Company  `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	ContractStartDate    string   `gorm:"column:contract_start_date;not null" json:"contractStartDate"`
	ContractEndDate      *string  `gorm:"column:contract_end_date" json:"contractEndDate,omitempty"`
	ContractPeriodMonths *int     `gorm:"column:contract_period_months" json:"contractPeriodMonths,omitempty"`
	ContractValue        *float64 `gorm:"column:contract_value" json:"contractValue,omitempty"`

	ServiceBatches ServiceBatchList `gorm:"column:service_batches;type:jsonb" json:"serviceBatches"`

	Status             string  `gorm:"column:status;not null;default:active" json:"status"`
	IsRenewed          bool    `gorm:"column:is_renewed;default:false" json:"isRenewed"`
	OriginalContractID *string `gorm:"column:original_contract_id" json:"originalContractId,omitempty"`

	// Reference to the signed contract document held by the external
	// document service; only the pointer is stored here.
	DocumentRef *string `gorm:"column:document_ref" json:"documentRef,omitempty"`

	Addendums       AddendumList `gorm:"column:addendums;type:jsonb" json:"addendums"`
	ContractHistory HistoryList  `gorm:"column:contract_history;type:jsonb" json:"contractHistory"`

	IsArchived    bool    `gorm:"column:is_archived;default:false" json:"isArchived"`
	ArchiveReason *string `gorm:"column:archive_reason" json:"archiveReason,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	CreatedBy string         `gorm:"column:created_by" json:"createdBy"`
	UpdatedBy *string        `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Contract) TableName() string { return "contracts" }

// ServiceBatch bundles a set of enabled service types, the branches the
// bundle covers, and its yearly visit quotas. A contract holds one or
// more batches so different branch groups can run different cadences.
type ServiceBatch struct {
	BatchID                string   `json:"batchId"`
	Name                   string   `json:"name,omitempty"`
	Services               []string `json:"services"`
	BranchIDs              []string `json:"branchIds"`
	RegularVisitsPerYear   int      `json:"regularVisitsPerYear"`
	EmergencyVisitsPerYear int      `json:"emergencyVisitsPerYear"`
	EmergencyVisitCost     float64  `json:"emergencyVisitCost,omitempty"`
}

// ServiceBatchList stores the batches as jsonb on the contract row.
type ServiceBatchList []ServiceBatch

func (l ServiceBatchList) Value() (driver.Value, error) { return jsonbValue([]ServiceBatch(l)) }

func (l *ServiceBatchList) Scan(src interface{}) error {
	return jsonbScan(src, (*[]ServiceBatch)(l))
}

// Copy returns a structural copy of the batches. Renewal must snapshot
// the predecessor's batches at the moment of renewal, not share them.
func (l ServiceBatchList) Copy() ServiceBatchList {
	if l == nil {
		return nil
	}
	out := make(ServiceBatchList, len(l))
	for i, b := range l {
		c := b
		c.Services = append([]string(nil), b.Services...)
		c.BranchIDs = append([]string(nil), b.BranchIDs...)
		out[i] = c
	}
	return out
}

// Addendum is an append-only supplemental change to a contract. Addenda
// never replace or mutate prior ones.
type Addendum struct {
	ID            string   `json:"id"`
	Services      []string `json:"services,omitempty"`
	Description   string   `json:"description"`
	EffectiveDate string   `json:"effectiveDate"`
	Value         *float64 `json:"value,omitempty"`
	AddedBy       string   `json:"addedBy"`
	AddedAt       string   `json:"addedAt"`
}

// AddendumList stores contract addenda as jsonb.
type AddendumList []Addendum

func (l AddendumList) Value() (driver.Value, error) { return jsonbValue([]Addendum(l)) }

func (l *AddendumList) Scan(src interface{}) error {
	return jsonbScan(src, (*[]Addendum)(l))
}

// HistoryEntry is an immutable audit event attached to a contract.
// Entries are only ever appended.
type HistoryEntry struct {
	Action      string         `json:"action"`
	Timestamp   string         `json:"timestamp"`
	PerformedBy string         `json:"performedBy"`
	Description string         `json:"description,omitempty"`
	Details     datatypes.JSON `json:"details,omitempty"`
}

// HistoryList stores the contract's audit trail as jsonb.
type HistoryList []HistoryEntry

func (l HistoryList) Value() (driver.Value, error) { return jsonbValue([]HistoryEntry(l)) }

func (l *HistoryList) Scan(src interface{}) error {
	return jsonbScan(src, (*[]HistoryEntry)(l))
}

// Append returns a new list with the entry added; the receiver is left
// untouched so earlier snapshots stay valid.
func (l HistoryList) Append(e HistoryEntry) HistoryList {
	out := make(HistoryList, 0, len(l)+1)
	out = append(out, l...)
	return append(out, e)
}
