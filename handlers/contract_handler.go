package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/hmztgr/salama-maintenance-system-sub002/middleware"
	"github.com/hmztgr/salama-maintenance-system-sub002/models"
	"github.com/hmztgr/salama-maintenance-system-sub002/store"
	"github.com/hmztgr/salama-maintenance-system-sub002/utils"
)

// ContractHandler handles contract operations
type ContractHandler struct {
	db        *gorm.DB
	contracts *store.Store[models.Contract]
	renewals  *RenewalEngine
}

// NewContractHandler creates a new contract handler
func NewContractHandler(db *gorm.DB, contracts *store.Store[models.Contract]) *ContractHandler {
	return &ContractHandler{
		db:        db,
		contracts: contracts,
		renewals:  NewRenewalEngine(db),
	}
}

// CreateContractRequest represents the request to create a contract
type CreateContractRequest struct {
	CompanyID            uuid.UUID             `json:"companyId"`
	ContractStartDate    string                `json:"contractStartDate"`
	ContractEndDate      *string               `json:"contractEndDate"`
	ContractPeriodMonths *int                  `json:"contractPeriodMonths"`
	ContractValue        *float64              `json:"contractValue"`
	ServiceBatches       []models.ServiceBatch `json:"serviceBatches"`
	DocumentRef          *string               `json:"documentRef"`
}

// CreateContract creates a new contract
func (h *ContractHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	start, err := utils.ParseDate(req.ContractStartDate)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid start date: %v", err), http.StatusBadRequest)
		return
	}

	// Exactly one of end date / period must be resolvable, otherwise the
	// contract duration is undefined and renewal would be impossible.
	hasEnd := req.ContractEndDate != nil && *req.ContractEndDate != ""
	hasPeriod := req.ContractPeriodMonths != nil && *req.ContractPeriodMonths > 0
	if !hasEnd && !hasPeriod {
		http.Error(w, "Either contractEndDate or contractPeriodMonths is required", http.StatusBadRequest)
		return
	}

	var endText *string
	if hasEnd {
		end, err := utils.ParseDate(*req.ContractEndDate)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid end date: %v", err), http.StatusBadRequest)
			return
		}
		t := utils.FormatDate(end)
		endText = &t
	} else {
		t := utils.FormatDate(start.AddDate(0, *req.ContractPeriodMonths, 0))
		endText = &t
	}

	if len(req.ServiceBatches) == 0 {
		http.Error(w, "At least one service batch is required", http.StatusBadRequest)
		return
	}
	for i := range req.ServiceBatches {
		if req.ServiceBatches[i].BatchID == "" {
			req.ServiceBatches[i].BatchID = uuid.NewString()
		}
	}

	contractID, err := nextContractID(h.db, start.Year())
	if err != nil {
		http.Error(w, "Failed to allocate contract id", http.StatusInternalServerError)
		return
	}

	actor := middleware.GetActorID(r)
	contract := models.Contract{
		ContractID:           contractID,
		CompanyID:            req.CompanyID,
		ContractStartDate:    utils.FormatDate(start),
		ContractEndDate:      endText,
		ContractPeriodMonths: req.ContractPeriodMonths,
		ContractValue:        req.ContractValue,
		ServiceBatches:       models.ServiceBatchList(req.ServiceBatches),
		Status:               models.ContractStatusActive,
		DocumentRef:          req.DocumentRef,
		Addendums:            models.AddendumList{},
		ContractHistory: models.HistoryList{{
			Action:      models.HistoryActionCreated,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			PerformedBy: actor,
			Description: "Contract created",
		}},
		CreatedBy: actor,
	}

	if err := h.contracts.Create(&contract); err != nil {
		log.Printf("❌ Failed to create contract: %v", err)
		http.Error(w, "Failed to create contract", http.StatusInternalServerError)
		return
	}

	go logActivity(h.db, "contract", contract.ContractID, "created", actor, middleware.GetActorName(r), nil)

	log.Printf("✅ Created contract: %s (%s to %s)", contract.ContractID, contract.ContractStartDate, *contract.ContractEndDate)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Contract created successfully",
		"contract": contract,
	})
}

// ListContracts lists contracts with filters
func (h *ContractHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	var contracts []models.Contract

	query := h.db.Model(&models.Contract{}).Preload("Company")
	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if r.URL.Query().Get("include_archived") != "true" {
		query = query.Where("is_archived = ?", false)
	}

	if err := query.Order("created_at DESC").Find(&contracts).Error; err != nil {
		http.Error(w, "Failed to fetch contracts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"contracts": contracts,
		"count":     len(contracts),
	})
}

// GetContract retrieves a contract by business id
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	var contract models.Contract
	if err := h.db.Preload("Company").Where("contract_id = ?", mux.Vars(r)["id"]).First(&contract).Error; err != nil {
		http.Error(w, "Contract not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contract)
}

// RenewContract derives the successor contract and archives the
// original in one step
func (h *ContractHandler) RenewContract(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	successor, err := h.renewals.RenewContract(contractID, middleware.GetActorID(r), middleware.GetActorName(r))
	if err != nil {
		var validation *RenewalValidationError
		if errors.As(err, &validation) {
			http.Error(w, validation.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ Failed to renew contract %s: %v", contractID, err)
		http.Error(w, fmt.Sprintf("Failed to renew contract: %v", err), http.StatusInternalServerError)
		return
	}

	// The mirror already changed under the renewal transaction; pull it
	// forward so same-tick readers see both contracts.
	if err := h.contracts.Refresh(); err != nil {
		log.Printf("⚠️  contract mirror refresh after renewal: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Contract renewed successfully",
		"contract": successor,
	})
}

// AddAddendum appends an addendum to a contract
func (h *ContractHandler) AddAddendum(w http.ResponseWriter, r *http.Request) {
	contractID := mux.Vars(r)["id"]

	var input AddAddendumInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	addendum, err := h.renewals.AddAddendum(contractID, input, middleware.GetActorID(r))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to add addendum: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.contracts.Refresh(); err != nil {
		log.Printf("⚠️  contract mirror refresh after addendum: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Addendum added successfully",
		"addendum": addendum,
	})
}

// GetContractHistory returns the append-only audit trail
func (h *ContractHandler) GetContractHistory(w http.ResponseWriter, r *http.Request) {
	var contract models.Contract
	if err := h.db.Where("contract_id = ?", mux.Vars(r)["id"]).First(&contract).Error; err != nil {
		http.Error(w, "Contract not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"history": contract.ContractHistory,
		"count":   len(contract.ContractHistory),
	})
}
