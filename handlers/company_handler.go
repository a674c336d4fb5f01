package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/hmztgr/salama-maintenance-system-sub002/middleware"
	"github.com/hmztgr/salama-maintenance-system-sub002/models"
	"github.com/hmztgr/salama-maintenance-system-sub002/store"
)

// CompanyHandler serves the company/branch collections and the lookup
// lists the planning pages join against.
type CompanyHandler struct {
	db        *gorm.DB
	companies *store.Store[models.Company]
	branches  *store.Store[models.Branch]
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(db *gorm.DB, companies *store.Store[models.Company], branches *store.Store[models.Branch]) *CompanyHandler {
	return &CompanyHandler{db: db, companies: companies, branches: branches}
}

// CreateCompany creates a company
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string  `json:"name"`
		NameAr  *string `json:"nameAr"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	var count int64
	if err := h.db.Model(&models.Company{}).Count(&count).Error; err != nil {
		http.Error(w, "Failed to allocate company id", http.StatusInternalServerError)
		return
	}

	company := models.Company{
		CompanyID: fmt.Sprintf("CMP-%04d", count+1),
		Name:      req.Name,
		NameAr:    req.NameAr,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		CreatedBy: middleware.GetActorID(r),
	}

	if err := h.companies.Create(&company); err != nil {
		log.Printf("❌ Failed to create company: %v", err)
		http.Error(w, "Failed to create company", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created company: %s (%s)", company.Name, company.CompanyID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Company created successfully",
		"company": company,
	})
}

// ListCompanies lists companies
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	var companies []models.Company
	query := h.db.Model(&models.Company{})
	if r.URL.Query().Get("include_archived") != "true" {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("name ASC").Find(&companies).Error; err != nil {
		http.Error(w, "Failed to fetch companies", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"companies": companies,
		"count":     len(companies),
	})
}

// CreateBranch creates a branch under a company
func (h *CompanyHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID     uuid.UUID `json:"companyId"`
		Name          string    `json:"name"`
		City          string    `json:"city"`
		Address       *string   `json:"address"`
		ContactPerson *string   `json:"contactPerson"`
		ContactPhone  *string   `json:"contactPhone"`
		Latitude      *float64  `json:"latitude"`
		Longitude     *float64  `json:"longitude"`
		AssignedTeam  *string   `json:"assignedTeam"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.City == "" {
		http.Error(w, "Name and city are required", http.StatusBadRequest)
		return
	}

	var company models.Company
	if err := h.db.First(&company, "id = ?", req.CompanyID).Error; err != nil {
		http.Error(w, "Invalid company", http.StatusBadRequest)
		return
	}

	var count int64
	if err := h.db.Model(&models.Branch{}).Where("company_id = ?", req.CompanyID).Count(&count).Error; err != nil {
		http.Error(w, "Failed to allocate branch id", http.StatusInternalServerError)
		return
	}

	branch := models.Branch{
		BranchID:      fmt.Sprintf("%s-BR-%03d", company.CompanyID, count+1),
		CompanyID:     req.CompanyID,
		Name:          req.Name,
		City:          req.City,
		Address:       req.Address,
		ContactPerson: req.ContactPerson,
		ContactPhone:  req.ContactPhone,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		AssignedTeam:  req.AssignedTeam,
		CreatedBy:     middleware.GetActorID(r),
	}

	if err := h.branches.Create(&branch); err != nil {
		log.Printf("❌ Failed to create branch: %v", err)
		http.Error(w, "Failed to create branch", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created branch: %s (%s)", branch.Name, branch.BranchID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Branch created successfully",
		"branch":  branch,
	})
}

// ListBranches lists branches, optionally for one company
func (h *CompanyHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	var branches []models.Branch
	query := h.db.Model(&models.Branch{})
	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if r.URL.Query().Get("include_archived") != "true" {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("name ASC").Find(&branches).Error; err != nil {
		http.Error(w, "Failed to fetch branches", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"branches": branches,
		"count":    len(branches),
	})
}

// GetBranch retrieves a branch by business id
func (h *CompanyHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	var branch models.Branch
	if err := h.db.Preload("Company").Where("branch_id = ?", mux.Vars(r)["id"]).First(&branch).Error; err != nil {
		http.Error(w, "Branch not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(branch)
}

// ListServiceTypes returns the active service catalog
func (h *CompanyHandler) ListServiceTypes(w http.ResponseWriter, r *http.Request) {
	var services []models.ServiceType
	if err := h.db.Where("is_active = ?", true).Order("name ASC").Find(&services).Error; err != nil {
		http.Error(w, "Failed to fetch service types", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"services": services,
		"count":    len(services),
	})
}

// LookupLists returns the id -> display name maps consumed by the
// planning pages; the grid builder joins against the same mirrors.
func (h *CompanyHandler) LookupLists(w http.ResponseWriter, r *http.Request) {
	companies := make(map[string]string)
	for _, c := range h.companies.CurrentItems() {
		companies[c.ID.String()] = c.Name
	}
	branches := make(map[string]string)
	for _, b := range h.branches.CurrentItems() {
		branches[b.ID.String()] = b.Name
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"companies": companies,
		"branches":  branches,
	})
}
