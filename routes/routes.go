package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hmztgr/salama-maintenance-system-sub002/handlers"
	"github.com/hmztgr/salama-maintenance-system-sub002/middleware"
)

// Handlers collects the constructed handler set the router wires up.
type Handlers struct {
	Companies *handlers.CompanyHandler
	Contracts *handlers.ContractHandler
	Visits    *handlers.VisitHandler
	Planner   *handlers.PlannerHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(h Handlers) http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/health", handleHealth).Methods("GET")

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	// Customer registry
	api.HandleFunc("/companies", h.Companies.CreateCompany).Methods("POST")
	api.HandleFunc("/companies", h.Companies.ListCompanies).Methods("GET")
	api.HandleFunc("/branches", h.Companies.CreateBranch).Methods("POST")
	api.HandleFunc("/branches", h.Companies.ListBranches).Methods("GET")
	api.HandleFunc("/branches/{id}", h.Companies.GetBranch).Methods("GET")
	api.HandleFunc("/lookups", h.Companies.LookupLists).Methods("GET")
	api.HandleFunc("/services", h.Companies.ListServiceTypes).Methods("GET")

	// Contracts
	api.HandleFunc("/contracts", h.Contracts.CreateContract).Methods("POST")
	api.HandleFunc("/contracts", h.Contracts.ListContracts).Methods("GET")
	api.HandleFunc("/contracts/{id}", h.Contracts.GetContract).Methods("GET")
	api.HandleFunc("/contracts/{id}/renew", h.Contracts.RenewContract).Methods("POST")
	api.HandleFunc("/contracts/{id}/addendums", h.Contracts.AddAddendum).Methods("POST")
	api.HandleFunc("/contracts/{id}/history", h.Contracts.GetContractHistory).Methods("GET")

	// Visits
	api.HandleFunc("/visits", h.Visits.CreateVisit).Methods("POST")
	api.HandleFunc("/visits", h.Visits.ListVisits).Methods("GET")
	api.HandleFunc("/visits/emergency", h.Visits.CreateEmergencyVisit).Methods("POST")
	api.HandleFunc("/visits/{id}", h.Visits.GetVisit).Methods("GET")
	api.HandleFunc("/visits/{id}", h.Visits.UpdateVisit).Methods("PATCH")
	api.HandleFunc("/visits/{id}", h.Visits.DeleteVisit).Methods("DELETE")
	api.HandleFunc("/visits/{id}/complete", h.Visits.CompleteVisit).Methods("POST")
	api.HandleFunc("/visits/{id}/cancel", h.Visits.CancelVisit).Methods("POST")
	api.HandleFunc("/visits/{id}/reschedule", h.Visits.RescheduleVisit).Methods("POST")

	// Weekly planner
	api.HandleFunc("/planner/week", h.Planner.GetWeeklyPlan).Methods("GET")
	api.HandleFunc("/planner/week/export", h.Planner.ExportWeeklyPlan).Methods("GET")
	api.HandleFunc("/planner/move", h.Planner.MoveVisit).Methods("POST")
	api.HandleFunc("/planner/movements", h.Planner.GetMovements).Methods("GET")

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
