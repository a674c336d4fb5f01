package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/hmztgr/salama-maintenance-system-sub002/middleware"
	"github.com/hmztgr/salama-maintenance-system-sub002/utils"
)

// PlannerHandler exposes the weekly planning engine over HTTP
type PlannerHandler struct {
	engine *PlanningEngine
}

// NewPlannerHandler creates a new planner handler
func NewPlannerHandler(engine *PlanningEngine) *PlannerHandler {
	return &PlannerHandler{engine: engine}
}

// weekParams reads week/year from the query, defaulting to the current
// week when absent.
func weekParams(r *http.Request) (int, int, error) {
	now := time.Now().UTC()
	week := utils.WeekNumber(now)
	year := now.Year()

	if v := r.URL.Query().Get("week"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 54 {
			return 0, 0, fmt.Errorf("invalid week %q", v)
		}
		week = n
	}
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2000 || n > 2200 {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
		year = n
	}
	return week, year, nil
}

// GetWeeklyPlan returns the 7-day grid for a week/year
func (h *PlannerHandler) GetWeeklyPlan(w http.ResponseWriter, r *http.Request) {
	week, year, err := weekParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan := h.engine.BuildWeeklyPlan(week, year)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plan)
}

// MoveVisitRequest relocates a visit between day indexes of the
// displayed week
type MoveVisitRequest struct {
	VisitID string `json:"visitId"`
	FromDay int    `json:"fromDay"`
	ToDay   int    `json:"toDay"`
	Week    int    `json:"week"`
	Year    int    `json:"year"`
}

// MoveVisit persists a drag-to-reschedule and responds with the rebuilt
// grid. The rebuild reads the refreshed mirror rather than patching the
// previous response, so edits from other viewers are picked up.
func (h *PlannerHandler) MoveVisit(w http.ResponseWriter, r *http.Request) {
	var req MoveVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.VisitID == "" {
		http.Error(w, "visitId is required", http.StatusBadRequest)
		return
	}
	if req.Week == 0 || req.Year == 0 {
		now := time.Now().UTC()
		req.Week = utils.WeekNumber(now)
		req.Year = now.Year()
	}

	err := h.engine.MoveVisit(req.VisitID, req.FromDay, req.ToDay, middleware.GetActorID(r))
	if err != nil {
		var bounds *MoveOutOfRangeError
		switch {
		case errors.Is(err, ErrVisitNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.As(err, &bounds):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("❌ Failed to move visit %s: %v", req.VisitID, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	log.Printf("✅ Moved visit %s: day %d -> %d", req.VisitID, req.FromDay, req.ToDay)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Visit moved successfully",
		"plan":    h.engine.BuildWeeklyPlan(req.Week, req.Year),
	})
}

// GetMovements returns the session's in-memory movement trail
func (h *PlannerHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	movements := h.engine.Movements()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"movements": movements,
		"count":     len(movements),
	})
}
