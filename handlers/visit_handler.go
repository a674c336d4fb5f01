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

// VisitHandler handles visit lifecycle operations
type VisitHandler struct {
	db       *gorm.DB
	visits   *store.Store[models.Visit]
	branches *store.Store[models.Branch]
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(db *gorm.DB, visits *store.Store[models.Visit], branches *store.Store[models.Branch]) *VisitHandler {
	return &VisitHandler{db: db, visits: visits, branches: branches}
}

// CreateVisitRequest represents the request to schedule a regular visit
type CreateVisitRequest struct {
	BranchID           uuid.UUID  `json:"branchId"`
	CompanyID          uuid.UUID  `json:"companyId"`
	ContractID         *uuid.UUID `json:"contractId"`
	ScheduledDate      string     `json:"scheduledDate"`
	ScheduledTime      *string    `json:"scheduledTime"`
	Duration           *float64   `json:"duration"`
	AssignedTeam       *string    `json:"assignedTeam"`
	AssignedTechnician *string    `json:"assignedTechnician"`
	Services           []string   `json:"services"`
	Notes              []string   `json:"notes"`
}

// CreateEmergencyRequest represents an emergency intake
type CreateEmergencyRequest struct {
	BranchID      uuid.UUID `json:"branchId"`
	CompanyID     uuid.UUID `json:"companyId"`
	Priority      string    `json:"priority"`
	ReportedBy    string    `json:"reportedBy"`
	Complaints    []string  `json:"complaints"`
	ScheduledDate string    `json:"scheduledDate"`
	ScheduledTime *string   `json:"scheduledTime"`
	Services      []string  `json:"services"`
}

// CreateVisit schedules a regular visit
func (h *VisitHandler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var req CreateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	scheduled, err := utils.ParseDate(req.ScheduledDate)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid scheduled date: %v", err), http.StatusBadRequest)
		return
	}

	branch, err := h.lookupBranch(req.BranchID)
	if err != nil {
		http.Error(w, "Invalid branch", http.StatusBadRequest)
		return
	}
	if branch.CompanyID != req.CompanyID {
		http.Error(w, "Branch does not belong to company", http.StatusBadRequest)
		return
	}

	visitID, err := nextVisitID(h.db, scheduled.Year())
	if err != nil {
		http.Error(w, "Failed to allocate visit id", http.StatusInternalServerError)
		return
	}

	actor := middleware.GetActorID(r)
	visit := models.Visit{
		VisitID:            visitID,
		BranchID:           req.BranchID,
		CompanyID:          req.CompanyID,
		ContractID:         req.ContractID,
		Type:               models.VisitTypeRegular,
		Status:             models.VisitStatusScheduled,
		ScheduledDate:      utils.FormatDate(scheduled),
		ScheduledTime:      req.ScheduledTime,
		Duration:           req.Duration,
		AssignedTeam:       req.AssignedTeam,
		AssignedTechnician: req.AssignedTechnician,
		Services:           models.StringList(req.Services),
		Notes:              models.StringList(req.Notes),
		Attachments:        models.AttachmentList{},
		CreatedBy:          actor,
	}
	if visit.AssignedTeam == nil {
		visit.AssignedTeam = branch.AssignedTeam
	}

	if err := h.visits.Create(&visit); err != nil {
		log.Printf("❌ Failed to create visit: %v", err)
		http.Error(w, "Failed to create visit", http.StatusInternalServerError)
		return
	}

	go logActivity(h.db, "visit", visit.VisitID, "created", actor, middleware.GetActorName(r), map[string]interface{}{
		"scheduledDate": visit.ScheduledDate,
	})

	log.Printf("✅ Created visit: %s (%s)", visit.VisitID, visit.ScheduledDate)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Visit created successfully",
		"visit":   visit,
	})
}

// CreateEmergencyVisit records an emergency ticket. Priority, reporter
// and at least one complaint are mandatory on intake.
func (h *VisitHandler) CreateEmergencyVisit(w http.ResponseWriter, r *http.Request) {
	var req CreateEmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Priority == "" || req.ReportedBy == "" || len(req.Complaints) == 0 {
		http.Error(w, "Priority, reporter and at least one complaint are required", http.StatusBadRequest)
		return
	}

	branch, err := h.lookupBranch(req.BranchID)
	if err != nil {
		http.Error(w, "Invalid branch", http.StatusBadRequest)
		return
	}
	if branch.CompanyID != req.CompanyID {
		http.Error(w, "Branch does not belong to company", http.StatusBadRequest)
		return
	}

	scheduledText := req.ScheduledDate
	if scheduledText == "" {
		scheduledText = utils.FormatDate(time.Now().UTC())
	}
	scheduled, err := utils.ParseDate(scheduledText)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid scheduled date: %v", err), http.StatusBadRequest)
		return
	}

	actor := middleware.GetActorID(r)
	visit := models.Visit{
		VisitID:       utils.NewEmergencyTicketNumber(branch.City),
		BranchID:      req.BranchID,
		CompanyID:     req.CompanyID,
		Type:          models.VisitTypeEmergency,
		Status:        models.VisitStatusScheduled,
		ScheduledDate: utils.FormatDate(scheduled),
		ScheduledTime: req.ScheduledTime,
		Services:      models.StringList(req.Services),
		Priority:      &req.Priority,
		ReportedBy:    &req.ReportedBy,
		Complaints:    models.StringList(req.Complaints),
		Attachments:   models.AttachmentList{},
		AssignedTeam:  h.suggestTeam(branch),
		CreatedBy:     actor,
	}

	if err := h.visits.Create(&visit); err != nil {
		log.Printf("❌ Failed to create emergency visit: %v", err)
		http.Error(w, "Failed to create emergency visit", http.StatusInternalServerError)
		return
	}

	go logActivity(h.db, "visit", visit.VisitID, "emergency_created", actor, middleware.GetActorName(r), map[string]interface{}{
		"priority": req.Priority,
	})

	log.Printf("🚨 Created emergency ticket: %s (priority %s)", visit.VisitID, req.Priority)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Emergency visit created successfully",
		"visit":   visit,
	})
}

// suggestTeam picks the branch's own team, falling back to the team of
// the geographically closest branch that has one.
func (h *VisitHandler) suggestTeam(branch *models.Branch) *string {
	if branch.AssignedTeam != nil && *branch.AssignedTeam != "" {
		return branch.AssignedTeam
	}
	if branch.Latitude == nil || branch.Longitude == nil {
		return nil
	}

	refs := make([]utils.GeoRef, 0)
	teams := make(map[string]string)
	for _, b := range h.branches.CurrentItems() {
		if b.ID == branch.ID || b.AssignedTeam == nil || *b.AssignedTeam == "" {
			continue
		}
		if b.Latitude == nil || b.Longitude == nil {
			continue
		}
		refs = append(refs, utils.GeoRef{Key: b.ID.String(), Lat: *b.Latitude, Lng: *b.Longitude})
		teams[b.ID.String()] = *b.AssignedTeam
	}
	nearest := utils.Nearest(refs, *branch.Latitude, *branch.Longitude)
	if nearest == nil {
		return nil
	}
	team := teams[nearest.Key]
	return &team
}

// ListVisits lists visits with filters
func (h *VisitHandler) ListVisits(w http.ResponseWriter, r *http.Request) {
	var visits []models.Visit

	query := h.db.Model(&models.Visit{})
	if branchID := r.URL.Query().Get("branch_id"); branchID != "" {
		query = query.Where("branch_id = ?", branchID)
	}
	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if contractID := r.URL.Query().Get("contract_id"); contractID != "" {
		query = query.Where("contract_id = ?", contractID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if visitType := r.URL.Query().Get("type"); visitType != "" {
		query = query.Where("type = ?", visitType)
	}
	if r.URL.Query().Get("include_archived") != "true" {
		query = query.Where("is_archived = ?", false)
	}

	if err := query.Order("created_at DESC").Find(&visits).Error; err != nil {
		http.Error(w, "Failed to fetch visits", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"visits": visits,
		"count":  len(visits),
	})
}

// GetVisit retrieves a visit by its business id
func (h *VisitHandler) GetVisit(w http.ResponseWriter, r *http.Request) {
	visit, err := h.findVisit(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(visit)
}

// updatableVisitColumns whitelists the fields a partial update may
// touch, mapped from their wire names.
var updatableVisitColumns = map[string]string{
	"scheduledDate":      "scheduled_date",
	"scheduledTime":      "scheduled_time",
	"duration":           "duration",
	"assignedTeam":       "assigned_team",
	"assignedTechnician": "assigned_technician",
	"services":           "services",
	"results":            "results",
	"isArchived":         "is_archived",
}

// UpdateVisit applies a partial update to a visit
func (h *VisitHandler) UpdateVisit(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	visit, err := h.findVisit(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}

	fields := make(map[string]interface{})
	for key, value := range req {
		column, ok := updatableVisitColumns[key]
		if !ok {
			continue
		}
		if key == "scheduledDate" {
			text, _ := value.(string)
			d, err := utils.ParseDate(text)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid scheduled date: %v", err), http.StatusBadRequest)
				return
			}
			value = utils.FormatDate(d)
		}
		if key == "services" || key == "results" {
			b, err := json.Marshal(value)
			if err != nil {
				http.Error(w, "Invalid field value", http.StatusBadRequest)
				return
			}
			value = string(b)
		}
		fields[column] = value
	}
	if len(fields) == 0 {
		http.Error(w, "No updatable fields in request", http.StatusBadRequest)
		return
	}

	if err := h.visits.Update(visit.ID.String(), fields, middleware.GetActorID(r)); err != nil {
		log.Printf("❌ Failed to update visit %s: %v", visit.VisitID, err)
		http.Error(w, "Failed to update visit", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Updated visit: %s", visit.VisitID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Visit updated successfully"})
}

// CompleteVisitRequest records a visit outcome
type CompleteVisitRequest struct {
	CompletedDate string                 `json:"completedDate"`
	CompletedTime *string                `json:"completedTime"`
	Duration      *float64               `json:"duration"`
	Results       map[string]interface{} `json:"results"`
}

// CompleteVisit marks a visit completed. A completed visit always
// carries a completion date.
func (h *VisitHandler) CompleteVisit(w http.ResponseWriter, r *http.Request) {
	var req CompleteVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	visit, err := h.findVisit(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}
	if visit.Status == models.VisitStatusCancelled {
		http.Error(w, "Cannot complete a cancelled visit", http.StatusBadRequest)
		return
	}

	completedText := req.CompletedDate
	if completedText == "" {
		completedText = utils.FormatDate(time.Now().UTC())
	}
	completed, err := utils.ParseDate(completedText)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid completed date: %v", err), http.StatusBadRequest)
		return
	}

	fields := map[string]interface{}{
		"status":         models.VisitStatusCompleted,
		"completed_date": utils.FormatDate(completed),
	}
	if req.CompletedTime != nil {
		fields["completed_time"] = *req.CompletedTime
	}
	if req.Duration != nil {
		fields["duration"] = *req.Duration
	}
	if len(req.Results) > 0 {
		b, _ := json.Marshal(req.Results)
		fields["results"] = string(b)
	}

	actor := middleware.GetActorID(r)
	if err := h.visits.Update(visit.ID.String(), fields, actor); err != nil {
		log.Printf("❌ Failed to complete visit %s: %v", visit.VisitID, err)
		http.Error(w, "Failed to complete visit", http.StatusInternalServerError)
		return
	}

	go logActivity(h.db, "visit", visit.VisitID, "completed", actor, middleware.GetActorName(r), map[string]interface{}{
		"completedDate": utils.FormatDate(completed),
	})

	log.Printf("✅ Completed visit: %s", visit.VisitID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Visit completed successfully"})
}

// CancelVisit cancels a visit with a reason note
func (h *VisitHandler) CancelVisit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	visit, err := h.findVisit(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}
	if visit.Status == models.VisitStatusCompleted {
		http.Error(w, "Cannot cancel a completed visit", http.StatusBadRequest)
		return
	}

	notes := append(models.StringList{}, visit.Notes...)
	if req.Reason != "" {
		notes = append(notes, fmt.Sprintf("Cancelled: %s", req.Reason))
	}

	if err := h.visits.Update(visit.ID.String(), map[string]interface{}{
		"status": models.VisitStatusCancelled,
		"notes":  notes,
	}, middleware.GetActorID(r)); err != nil {
		http.Error(w, "Failed to cancel visit", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Cancelled visit: %s", visit.VisitID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Visit cancelled successfully"})
}

// RescheduleVisit moves a visit to a new date. The reason is mandatory
// and becomes the newest note on the visit.
func (h *VisitHandler) RescheduleVisit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewDate string `json:"newDate"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		http.Error(w, "Reschedule reason is required", http.StatusBadRequest)
		return
	}

	newDate, err := utils.ParseDate(req.NewDate)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid new date: %v", err), http.StatusBadRequest)
		return
	}

	visit, err := h.findVisit(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}
	if visit.Status == models.VisitStatusCompleted || visit.Status == models.VisitStatusCancelled {
		http.Error(w, "Cannot reschedule a closed visit", http.StatusBadRequest)
		return
	}

	notes := append(models.StringList{}, visit.Notes...)
	notes = append(notes, fmt.Sprintf("Rescheduled from %s: %s", visit.ScheduledDate, req.Reason))

	if err := h.visits.Update(visit.ID.String(), map[string]interface{}{
		"status":         models.VisitStatusRescheduled,
		"scheduled_date": utils.FormatDate(newDate),
		"notes":          notes,
	}, middleware.GetActorID(r)); err != nil {
		http.Error(w, "Failed to reschedule visit", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Rescheduled visit %s to %s", visit.VisitID, utils.FormatDate(newDate))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Visit rescheduled successfully"})
}

// DeleteVisit soft-removes a visit. Archiving is the normal lifecycle
// exit; deletion is for records created in error, and even then the
// row is only marked deleted, never hard-removed.
func (h *VisitHandler) DeleteVisit(w http.ResponseWriter, r *http.Request) {
	visit, err := h.findVisit(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}
	if visit.Status == models.VisitStatusCompleted {
		http.Error(w, "Cannot delete a completed visit", http.StatusBadRequest)
		return
	}

	actor := middleware.GetActorID(r)
	if err := h.visits.Delete(visit.ID.String(), actor); err != nil {
		log.Printf("❌ Failed to delete visit %s: %v", visit.VisitID, err)
		http.Error(w, "Failed to delete visit", http.StatusInternalServerError)
		return
	}

	go logActivity(h.db, "visit", visit.VisitID, "deleted", actor, middleware.GetActorName(r), nil)

	log.Printf("✅ Deleted visit: %s", visit.VisitID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Visit deleted successfully"})
}

// findVisit resolves a business visit id to the stored row.
func (h *VisitHandler) findVisit(visitID string) (*models.Visit, error) {
	var visit models.Visit
	if err := h.db.Where("visit_id = ?", visitID).First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}
	return &visit, nil
}

// lookupBranch fetches a branch by storage id.
func (h *VisitHandler) lookupBranch(id uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := h.db.First(&branch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// nextVisitID allocates the next VISIT-YYYY-NNNN sequence for a year.
func nextVisitID(db *gorm.DB, year int) (string, error) {
	var count int64
	prefix := fmt.Sprintf("VISIT-%04d-%%", year)
	if err := db.Model(&models.Visit{}).Where("visit_id LIKE ?", prefix).Count(&count).Error; err != nil {
		return "", err
	}
	return utils.FormatVisitID(year, int(count)+1), nil
}
