package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
	"github.com/hmztgr/salama-maintenance-system-sub002/utils"
)

// RenewalValidationError fails a renewal before any write happens.
type RenewalValidationError struct {
	ContractID string
	Reason     string
}

func (e *RenewalValidationError) Error() string {
	return fmt.Sprintf("cannot renew contract %s: %s", e.ContractID, e.Reason)
}

// RenewalEngine derives a successor contract from an expiring one and
// archives the original, preserving the full audit trail. Both writes
// run in one transaction so a half-renewed pair of contracts cannot be
// left behind.
type RenewalEngine struct {
	db *gorm.DB
}

// NewRenewalEngine creates a renewal engine on the given handle.
func NewRenewalEngine(db *gorm.DB) *RenewalEngine {
	return &RenewalEngine{db: db}
}

// renewalWindow is the computed successor term.
type renewalWindow struct {
	durationMonths int
	newStart       time.Time
	newEnd         time.Time
}

// computeRenewalWindow resolves the successor's start/end dates.
// Duration comes from the explicit period when present, otherwise from
// the start/end span rounded up to whole months. The new term starts
// the day after the old end; the new end is start plus the duration in
// months, not reduced by a day.
func computeRenewalWindow(c *models.Contract) (renewalWindow, error) {
	if c.ContractEndDate == nil || *c.ContractEndDate == "" {
		return renewalWindow{}, &RenewalValidationError{ContractID: c.ContractID, Reason: "contract has no end date"}
	}
	end, err := utils.ParseDate(*c.ContractEndDate)
	if err != nil {
		return renewalWindow{}, &RenewalValidationError{ContractID: c.ContractID, Reason: fmt.Sprintf("end date: %v", err)}
	}

	var duration int
	switch {
	case c.ContractPeriodMonths != nil && *c.ContractPeriodMonths > 0:
		duration = *c.ContractPeriodMonths
	default:
		start, err := utils.ParseDate(c.ContractStartDate)
		if err != nil {
			return renewalWindow{}, &RenewalValidationError{ContractID: c.ContractID, Reason: fmt.Sprintf("start date: %v", err)}
		}
		duration = utils.MonthsBetween(start, end)
		if duration <= 0 {
			return renewalWindow{}, &RenewalValidationError{ContractID: c.ContractID, Reason: "neither a period nor a usable start/end span is set"}
		}
	}

	newStart := end.AddDate(0, 0, 1)
	return renewalWindow{
		durationMonths: duration,
		newStart:       newStart,
		newEnd:         newStart.AddDate(0, duration, 0),
	}, nil
}

// buildSuccessor assembles the successor contract from the predecessor
// and the computed window. Service batches are copied by value, never
// shared.
func buildSuccessor(c *models.Contract, w renewalWindow, newContractID, actor string) models.Contract {
	endText := utils.FormatDate(w.newEnd)
	period := w.durationMonths
	originalID := c.ContractID

	details, _ := json.Marshal(map[string]interface{}{
		"originalContractId": c.ContractID,
		"durationMonths":     w.durationMonths,
	})

	return models.Contract{
		ContractID:           newContractID,
		CompanyID:            c.CompanyID,
		ContractStartDate:    utils.FormatDate(w.newStart),
		ContractEndDate:      &endText,
		ContractPeriodMonths: &period,
		ContractValue:        c.ContractValue,
		ServiceBatches:       c.ServiceBatches.Copy(),
		DocumentRef:          c.DocumentRef,
		Status:               models.ContractStatusActive,
		IsRenewed:            true,
		OriginalContractID:   &originalID,
		Addendums:            models.AddendumList{},
		ContractHistory: models.HistoryList{{
			Action:      models.HistoryActionRenewed,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			PerformedBy: actor,
			Description: fmt.Sprintf("Renewed from contract %s", c.ContractID),
			Details:     datatypes.JSON(details),
		}},
		CreatedBy: actor,
	}
}

// RenewContract creates the successor and archives the predecessor in
// a single transaction. If either contract date is unparsable the
// renewal fails fast with no writes.
func (e *RenewalEngine) RenewContract(contractID string, actor, actorName string) (*models.Contract, error) {
	var contract models.Contract
	if err := e.db.Where("contract_id = ?", contractID).First(&contract).Error; err != nil {
		return nil, fmt.Errorf("contract %s not found: %w", contractID, err)
	}
	if contract.IsArchived {
		return nil, &RenewalValidationError{ContractID: contractID, Reason: "contract is already archived"}
	}

	window, err := computeRenewalWindow(&contract)
	if err != nil {
		return nil, err
	}

	newContractID, err := nextContractID(e.db, window.newStart.Year())
	if err != nil {
		return nil, err
	}

	successor := buildSuccessor(&contract, window, newContractID, actor)

	archiveReason := fmt.Sprintf("Renewed into %s", successor.ContractID)
	archivedHistory := contract.ContractHistory.Append(models.HistoryEntry{
		Action:      models.HistoryActionArchived,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		PerformedBy: actor,
		Description: archiveReason,
	})

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&successor).Error; err != nil {
			return fmt.Errorf("create successor: %w", err)
		}
		res := tx.Model(&models.Contract{}).Where("id = ?", contract.ID).Updates(map[string]interface{}{
			"status":           models.ContractStatusArchived,
			"is_archived":      true,
			"archive_reason":   archiveReason,
			"contract_history": archivedHistory,
			"updated_by":       actor,
		})
		if res.Error != nil {
			return fmt.Errorf("archive predecessor: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Renewed contract %s -> %s (%d months, %s to %s)",
		contract.ContractID, successor.ContractID, window.durationMonths,
		successor.ContractStartDate, *successor.ContractEndDate)
	go logActivity(e.db, "contract", successor.ContractID, "renewed", actor, actorName, map[string]interface{}{
		"originalContractId": contract.ContractID,
	})

	return &successor, nil
}

// AddAddendumInput is the payload for appending an addendum.
type AddAddendumInput struct {
	Services      []string `json:"services"`
	Description   string   `json:"description"`
	EffectiveDate string   `json:"effectiveDate"`
	Value         *float64 `json:"value,omitempty"`
}

// AddAddendum appends a new addendum plus a matching history entry to
// the contract. Prior addenda are never mutated or removed.
func (e *RenewalEngine) AddAddendum(contractID string, input AddAddendumInput, actor string) (*models.Addendum, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("addendum description is required")
	}
	if input.EffectiveDate != "" {
		if _, err := utils.ParseDate(input.EffectiveDate); err != nil {
			return nil, fmt.Errorf("addendum effective date: %w", err)
		}
	}

	var contract models.Contract
	if err := e.db.Where("contract_id = ?", contractID).First(&contract).Error; err != nil {
		return nil, fmt.Errorf("contract %s not found: %w", contractID, err)
	}

	addendum := models.Addendum{
		ID:            uuid.NewString(),
		Services:      append([]string(nil), input.Services...),
		Description:   input.Description,
		EffectiveDate: input.EffectiveDate,
		Value:         input.Value,
		AddedBy:       actor,
		AddedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	addendums := make(models.AddendumList, 0, len(contract.Addendums)+1)
	addendums = append(addendums, contract.Addendums...)
	addendums = append(addendums, addendum)

	history := contract.ContractHistory.Append(models.HistoryEntry{
		Action:      models.HistoryActionAddendumAdded,
		Timestamp:   addendum.AddedAt,
		PerformedBy: actor,
		Description: input.Description,
	})

	res := e.db.Model(&models.Contract{}).Where("id = ?", contract.ID).Updates(map[string]interface{}{
		"addendums":        addendums,
		"contract_history": history,
		"updated_by":       actor,
	})
	if res.Error != nil {
		return nil, res.Error
	}

	log.Printf("✅ Added addendum %s to contract %s", addendum.ID, contractID)
	return &addendum, nil
}

// nextContractID allocates the next CNT-YYYY-NNNN sequence for a year.
func nextContractID(db *gorm.DB, year int) (string, error) {
	var count int64
	prefix := fmt.Sprintf("CNT-%04d-%%", year)
	if err := db.Model(&models.Contract{}).Where("contract_id LIKE ?", prefix).Count(&count).Error; err != nil {
		return "", err
	}
	return utils.FormatContractID(year, int(count)+1), nil
}
