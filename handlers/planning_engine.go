package handlers

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
	"github.com/hmztgr/salama-maintenance-system-sub002/utils"
)

// Fallback labels when a visit's company or branch cannot be joined
// against the lookup lists.
const (
	unknownCompanyLabel = "Unknown Company"
	unknownBranchLabel  = "Unknown Branch"
)

// ErrVisitNotFound is returned when a move targets a visit id that is
// not in the mirror; that is a programming-contract violation by the
// caller, not a data condition.
var ErrVisitNotFound = errors.New("visit not found")

// MoveOutOfRangeError rejects a move whose resulting date lands more
// than one year away from the current year. The bound guards against
// accidental large jumps.
type MoveOutOfRangeError struct {
	ResultDate string
}

func (e *MoveOutOfRangeError) Error() string {
	return fmt.Sprintf("move rejected: resulting date %s is more than one year from the current year", e.ResultDate)
}

// DailyPlan is one day of the weekly grid.
type DailyPlan struct {
	Date       string         `json:"date"`
	DayName    string         `json:"dayName"`
	Visits     []models.Visit `json:"visits"`
	VisitCount int            `json:"visitCount"`
	TotalHours float64        `json:"totalHours"`
}

// WeeklyPlan is the derived 7-day view of visits for a week/year. It is
// recomputed in full from the visit mirror and owns no state of its own.
type WeeklyPlan struct {
	WeekNumber    int            `json:"weekNumber"`
	Year          int            `json:"year"`
	WeekStartDate string         `json:"weekStartDate"`
	WeekEndDate   string         `json:"weekEndDate"`
	Visits        []models.Visit `json:"visits"`
	Days          []DailyPlan    `json:"days"`
	SkippedVisits int            `json:"skippedVisits"`
}

// VisitMovement is the ephemeral audit record of one drag-to-reschedule
// action. Movements live only in memory for the current session.
type VisitMovement struct {
	VisitID string    `json:"visitId"`
	FromDay int       `json:"fromDay"`
	ToDay   int       `json:"toDay"`
	MovedAt time.Time `json:"movedAt"`
	MovedBy string    `json:"movedBy"`
}

// movementLogCap bounds the in-memory movement trail.
const movementLogCap = 200

// VisitSource is the slice of the visit store the engine needs.
type VisitSource interface {
	CurrentItems() []models.Visit
	Update(id string, fields map[string]interface{}, actor string) error
}

// CompanySource provides the company lookup list.
type CompanySource interface {
	CurrentItems() []models.Company
}

// BranchSource provides the branch lookup list.
type BranchSource interface {
	CurrentItems() []models.Branch
}

// PlanningEngine builds the weekly grid and relocates visits between
// its days.
type PlanningEngine struct {
	visits    VisitSource
	companies CompanySource
	branches  BranchSource

	mu        sync.Mutex
	movements []VisitMovement
}

// NewPlanningEngine creates a planning engine over the given mirrors.
func NewPlanningEngine(visits VisitSource, companies CompanySource, branches BranchSource) *PlanningEngine {
	return &PlanningEngine{
		visits:    visits,
		companies: companies,
		branches:  branches,
	}
}

// BuildWeeklyPlan projects the current visit mirror into the 7-day grid
// for (week, year).
//
// The week-number comparison is the authoritative filter, not a
// text-range compare, because stored date text varies in format. A
// visit whose date cannot be parsed is excluded from every bucket and
// counted toward a single aggregated warning; it never fails the build.
func (e *PlanningEngine) BuildWeeklyPlan(week, year int) WeeklyPlan {
	start, end := utils.WeekRange(week, year)

	companyNames := make(map[string]string)
	for _, c := range e.companies.CurrentItems() {
		companyNames[c.ID.String()] = c.Name
	}
	branchNames := make(map[string]string)
	for _, b := range e.branches.CurrentItems() {
		branchNames[b.ID.String()] = b.Name
	}

	var warnings utils.DateWarnings
	kept := make([]models.Visit, 0)
	byDate := make(map[string][]int)

	for _, v := range e.visits.CurrentItems() {
		if v.IsArchived {
			continue
		}
		d, err := utils.ParseDate(v.ScheduledDate)
		if err != nil {
			warnings.Add(v.ScheduledDate)
			continue
		}
		if utils.WeekNumber(d) != week || d.Year() != year {
			continue
		}

		v.CompanyName = companyNames[v.CompanyID.String()]
		if v.CompanyName == "" {
			v.CompanyName = unknownCompanyLabel
		}
		v.BranchName = branchNames[v.BranchID.String()]
		if v.BranchName == "" {
			v.BranchName = unknownBranchLabel
		}

		kept = append(kept, v)
		key := utils.FormatDate(d)
		byDate[key] = append(byDate[key], len(kept)-1)
	}
	skipped := warnings.Count()
	warnings.Flush("weekly plan build")

	days := make([]DailyPlan, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		plan := DailyPlan{
			Date:    utils.FormatDate(day),
			DayName: day.Weekday().String(),
			Visits:  []models.Visit{},
		}
		for _, idx := range byDate[plan.Date] {
			v := kept[idx]
			plan.Visits = append(plan.Visits, v)
			if v.Duration != nil {
				plan.TotalHours += *v.Duration
			}
		}
		plan.VisitCount = len(plan.Visits)
		days[i] = plan
	}

	return WeeklyPlan{
		WeekNumber:    week,
		Year:          year,
		WeekStartDate: utils.FormatDate(start),
		WeekEndDate:   utils.FormatDate(end),
		Visits:        kept,
		Days:          days,
		SkippedVisits: skipped,
	}
}

// MoveVisit relocates a visit from one displayed day index to another
// within the same week and persists the new date. The grid is not
// patched optimistically; callers rebuild from the refreshed mirror so
// concurrent edits from other viewers are not clobbered.
func (e *PlanningEngine) MoveVisit(visitID string, fromDay, toDay int, actor string) error {
	if fromDay < 0 || fromDay > 6 || toDay < 0 || toDay > 6 {
		return fmt.Errorf("day index out of range: from %d to %d", fromDay, toDay)
	}

	// Archived visits never appear on the grid, so there is no day
	// index they could be moved from.
	var visit *models.Visit
	for _, v := range e.visits.CurrentItems() {
		if v.VisitID == visitID && !v.IsArchived {
			visit = &v
			break
		}
	}
	if visit == nil {
		return ErrVisitNotFound
	}

	current, err := utils.ParseDate(visit.ScheduledDate)
	if err != nil {
		return fmt.Errorf("cannot move visit %s: %w", visitID, err)
	}

	newDate := current.AddDate(0, 0, toDay-fromDay)
	yearDelta := newDate.Year() - time.Now().Year()
	if yearDelta > 1 || yearDelta < -1 {
		return &MoveOutOfRangeError{ResultDate: utils.FormatDate(newDate)}
	}

	if err := e.visits.Update(visit.ID.String(), map[string]interface{}{
		"scheduled_date": utils.FormatDate(newDate),
	}, actor); err != nil {
		return err
	}

	e.mu.Lock()
	e.movements = append(e.movements, VisitMovement{
		VisitID: visitID,
		FromDay: fromDay,
		ToDay:   toDay,
		MovedAt: time.Now(),
		MovedBy: actor,
	})
	if len(e.movements) > movementLogCap {
		e.movements = e.movements[len(e.movements)-movementLogCap:]
	}
	e.mu.Unlock()

	return nil
}

// Movements returns the session's in-memory movement trail, newest
// last.
func (e *PlanningEngine) Movements() []VisitMovement {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]VisitMovement, len(e.movements))
	copy(out, e.movements)
	return out
}
