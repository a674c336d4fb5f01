package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
	"github.com/hmztgr/salama-maintenance-system-sub002/utils"
)

type recordedUpdate struct {
	id     string
	fields map[string]interface{}
	actor  string
}

// fakeVisitSource mirrors a slice in memory and applies scheduled_date
// updates to it so moves are observable through CurrentItems.
type fakeVisitSource struct {
	items   []models.Visit
	updates []recordedUpdate
	err     error
}

func (f *fakeVisitSource) CurrentItems() []models.Visit {
	out := make([]models.Visit, len(f.items))
	copy(out, f.items)
	return out
}

func (f *fakeVisitSource) Update(id string, fields map[string]interface{}, actor string) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, recordedUpdate{id: id, fields: fields, actor: actor})
	for i := range f.items {
		if f.items[i].ID.String() == id {
			if d, ok := fields["scheduled_date"].(string); ok {
				f.items[i].ScheduledDate = d
			}
		}
	}
	return nil
}

type fakeCompanySource struct{ items []models.Company }

func (f *fakeCompanySource) CurrentItems() []models.Company { return f.items }

type fakeBranchSource struct{ items []models.Branch }

func (f *fakeBranchSource) CurrentItems() []models.Branch { return f.items }

func testVisit(id string, companyID, branchID uuid.UUID, date string) models.Visit {
	return models.Visit{
		ID:            uuid.New(),
		VisitID:       id,
		CompanyID:     companyID,
		BranchID:      branchID,
		Type:          models.VisitTypeRegular,
		Status:        models.VisitStatusScheduled,
		ScheduledDate: date,
	}
}

func newTestEngine(visits *fakeVisitSource) (*PlanningEngine, uuid.UUID, uuid.UUID) {
	companyID := uuid.New()
	branchID := uuid.New()
	companies := &fakeCompanySource{items: []models.Company{{ID: companyID, Name: "Salama Foods"}}}
	branches := &fakeBranchSource{items: []models.Branch{{ID: branchID, CompanyID: companyID, Name: "Olaya Branch"}}}
	return NewPlanningEngine(visits, companies, branches), companyID, branchID
}

// anchorDay returns July 1 of the current year and its day index within
// the Saturday-started week. Anchoring on the current year keeps the
// move bounds quiet regardless of when the suite runs.
func anchorDay() (time.Time, int) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	idx := int(anchor.Sub(utils.WeekStartOf(anchor)).Hours() / 24)
	return anchor, idx
}

func TestBuildWeeklyPlan(t *testing.T) {
	anchor, anchorIdx := anchorDay()
	week := utils.WeekNumber(anchor)
	year := anchor.Year()
	weekStart := utils.WeekStartOf(anchor)

	companyID := uuid.New()
	branchID := uuid.New()
	visits := &fakeVisitSource{items: []models.Visit{
		testVisit("VISIT-0001", companyID, branchID, utils.FormatDate(weekStart)),
		testVisit("VISIT-0002", companyID, branchID, utils.FormatDate(anchor)),
		testVisit("VISIT-0003", companyID, branchID, utils.FormatDate(anchor)),
		testVisit("VISIT-0004", companyID, branchID, utils.FormatDate(weekStart.AddDate(0, 0, 6))),
		testVisit("VISIT-0005", companyID, branchID, utils.FormatDate(weekStart.AddDate(0, 0, 14))), // different week
		testVisit("VISIT-0006", companyID, branchID, "Invalid Date"),
	}}
	companies := &fakeCompanySource{items: []models.Company{{ID: companyID, Name: "Salama Foods"}}}
	branches := &fakeBranchSource{items: []models.Branch{{ID: branchID, CompanyID: companyID, Name: "Olaya Branch"}}}
	engine := NewPlanningEngine(visits, companies, branches)

	plan := engine.BuildWeeklyPlan(week, year)

	if plan.WeekNumber != week || plan.Year != year {
		t.Errorf("plan labeled week %d/%d, expected %d/%d", plan.WeekNumber, plan.Year, week, year)
	}
	if plan.WeekStartDate != utils.FormatDate(weekStart) {
		t.Errorf("WeekStartDate = %s, expected %s", plan.WeekStartDate, utils.FormatDate(weekStart))
	}
	if len(plan.Days) != 7 {
		t.Fatalf("plan has %d days, expected 7", len(plan.Days))
	}
	if len(plan.Visits) != 4 {
		t.Errorf("plan kept %d visits, expected 4", len(plan.Visits))
	}
	if plan.SkippedVisits != 1 {
		t.Errorf("SkippedVisits = %d, expected 1", plan.SkippedVisits)
	}

	// Every kept visit lands in exactly one day bucket.
	total := 0
	for _, day := range plan.Days {
		total += day.VisitCount
		if day.VisitCount != len(day.Visits) {
			t.Errorf("day %s VisitCount %d disagrees with %d visits", day.Date, day.VisitCount, len(day.Visits))
		}
	}
	if total != len(plan.Visits) {
		t.Errorf("day buckets hold %d visits, plan kept %d", total, len(plan.Visits))
	}

	anchorPlan := plan.Days[anchorIdx]
	if anchorPlan.VisitCount < 2 {
		t.Fatalf("anchor day holds %d visits, expected at least 2", anchorPlan.VisitCount)
	}

	// Lookup names are joined in.
	if anchorPlan.Visits[0].CompanyName != "Salama Foods" || anchorPlan.Visits[0].BranchName != "Olaya Branch" {
		t.Errorf("joined names = %q / %q", anchorPlan.Visits[0].CompanyName, anchorPlan.Visits[0].BranchName)
	}
}

func TestBuildWeeklyPlanUnknownLookups(t *testing.T) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	visits := &fakeVisitSource{items: []models.Visit{
		testVisit("VISIT-0001", uuid.New(), uuid.New(), utils.FormatDate(anchor)),
	}}
	engine := NewPlanningEngine(visits, &fakeCompanySource{}, &fakeBranchSource{})

	plan := engine.BuildWeeklyPlan(utils.WeekNumber(anchor), anchor.Year())
	if len(plan.Visits) != 1 {
		t.Fatalf("plan kept %d visits, expected 1", len(plan.Visits))
	}
	if plan.Visits[0].CompanyName != "Unknown Company" {
		t.Errorf("CompanyName = %q, expected Unknown Company", plan.Visits[0].CompanyName)
	}
	if plan.Visits[0].BranchName != "Unknown Branch" {
		t.Errorf("BranchName = %q, expected Unknown Branch", plan.Visits[0].BranchName)
	}
}

func TestBuildWeeklyPlanExcludesArchived(t *testing.T) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	archived := testVisit("VISIT-0001", uuid.New(), uuid.New(), utils.FormatDate(anchor))
	archived.IsArchived = true
	visits := &fakeVisitSource{items: []models.Visit{archived}}
	engine := NewPlanningEngine(visits, &fakeCompanySource{}, &fakeBranchSource{})

	plan := engine.BuildWeeklyPlan(utils.WeekNumber(anchor), anchor.Year())
	if len(plan.Visits) != 0 {
		t.Errorf("archived visit leaked into plan: %+v", plan.Visits)
	}
	if plan.SkippedVisits != 0 {
		t.Errorf("archived visit counted as skipped")
	}
}

func TestBuildWeeklyPlanTotalHours(t *testing.T) {
	anchor, anchorIdx := anchorDay()
	hours := 2.5
	v := testVisit("VISIT-0001", uuid.New(), uuid.New(), utils.FormatDate(anchor))
	v.Duration = &hours
	visits := &fakeVisitSource{items: []models.Visit{v}}
	engine := NewPlanningEngine(visits, &fakeCompanySource{}, &fakeBranchSource{})

	plan := engine.BuildWeeklyPlan(utils.WeekNumber(anchor), anchor.Year())
	if plan.Days[anchorIdx].TotalHours != 2.5 {
		t.Errorf("TotalHours = %v, expected 2.5", plan.Days[anchorIdx].TotalHours)
	}
}

func TestMoveVisit(t *testing.T) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	visits := &fakeVisitSource{items: []models.Visit{
		testVisit("VISIT-0001", uuid.New(), uuid.New(), utils.FormatDate(anchor)),
	}}
	engine, _, _ := newTestEngine(visits)

	if err := engine.MoveVisit("VISIT-0001", 3, 6, "planner@salama"); err != nil {
		t.Fatalf("MoveVisit: %v", err)
	}

	expected := utils.FormatDate(anchor.AddDate(0, 0, 3))
	if len(visits.updates) != 1 {
		t.Fatalf("recorded %d updates, expected 1", len(visits.updates))
	}
	upd := visits.updates[0]
	if upd.fields["scheduled_date"] != expected {
		t.Errorf("scheduled_date = %v, expected %s", upd.fields["scheduled_date"], expected)
	}
	if len(upd.fields) != 1 {
		t.Errorf("update touched %d fields, expected scheduled_date only", len(upd.fields))
	}
	if upd.actor != "planner@salama" {
		t.Errorf("actor = %q", upd.actor)
	}

	movements := engine.Movements()
	if len(movements) != 1 || movements[0].VisitID != "VISIT-0001" || movements[0].ToDay != 6 {
		t.Errorf("movements = %+v", movements)
	}
}

func TestMoveVisitInverse(t *testing.T) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	original := utils.FormatDate(anchor)
	visits := &fakeVisitSource{items: []models.Visit{
		testVisit("VISIT-0001", uuid.New(), uuid.New(), original),
	}}
	engine, _, _ := newTestEngine(visits)

	if err := engine.MoveVisit("VISIT-0001", 3, 5, "planner"); err != nil {
		t.Fatalf("forward move: %v", err)
	}
	if err := engine.MoveVisit("VISIT-0001", 5, 3, "planner"); err != nil {
		t.Fatalf("inverse move: %v", err)
	}
	if got := visits.items[0].ScheduledDate; got != original {
		t.Errorf("date after round trip = %s, expected %s", got, original)
	}
}

func TestMoveVisitValidation(t *testing.T) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	farOut := time.Now().AddDate(2, 0, 0)
	archived := testVisit("VISIT-0004", uuid.New(), uuid.New(), utils.FormatDate(anchor))
	archived.IsArchived = true
	visits := &fakeVisitSource{items: []models.Visit{
		testVisit("VISIT-0001", uuid.New(), uuid.New(), utils.FormatDate(anchor)),
		testVisit("VISIT-0002", uuid.New(), uuid.New(), utils.FormatDate(farOut)),
		testVisit("VISIT-0003", uuid.New(), uuid.New(), "NaN"),
		archived,
	}}
	engine, _, _ := newTestEngine(visits)

	t.Run("day index out of range", func(t *testing.T) {
		if err := engine.MoveVisit("VISIT-0001", 0, 7, "planner"); err == nil {
			t.Error("expected error for day index 7")
		}
		if err := engine.MoveVisit("VISIT-0001", -1, 3, "planner"); err == nil {
			t.Error("expected error for day index -1")
		}
	})

	t.Run("unknown visit id", func(t *testing.T) {
		err := engine.MoveVisit("VISIT-9999", 0, 1, "planner")
		if !errors.Is(err, ErrVisitNotFound) {
			t.Errorf("error = %v, expected ErrVisitNotFound", err)
		}
	})

	t.Run("archived visit not movable", func(t *testing.T) {
		err := engine.MoveVisit("VISIT-0004", 0, 1, "planner")
		if !errors.Is(err, ErrVisitNotFound) {
			t.Errorf("error = %v, expected ErrVisitNotFound", err)
		}
	})

	t.Run("resulting date beyond one year", func(t *testing.T) {
		err := engine.MoveVisit("VISIT-0002", 0, 1, "planner")
		var bounds *MoveOutOfRangeError
		if !errors.As(err, &bounds) {
			t.Errorf("error = %v, expected MoveOutOfRangeError", err)
		}
	})

	t.Run("unparsable scheduled date", func(t *testing.T) {
		err := engine.MoveVisit("VISIT-0003", 0, 1, "planner")
		var parseErr *utils.DateParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("error = %v, expected wrapped DateParseError", err)
		}
	})

	if len(visits.updates) != 0 {
		t.Errorf("rejected moves still wrote %d updates", len(visits.updates))
	}
	if len(engine.Movements()) != 0 {
		t.Errorf("rejected moves still recorded movements")
	}
}

func TestMovementLogCap(t *testing.T) {
	anchor := time.Date(time.Now().Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	visits := &fakeVisitSource{items: []models.Visit{
		testVisit("VISIT-0001", uuid.New(), uuid.New(), utils.FormatDate(anchor)),
	}}
	engine, _, _ := newTestEngine(visits)

	for i := 0; i < movementLogCap+25; i++ {
		// Alternate so the date never drifts out of bounds.
		from, to := 3, 4
		if i%2 == 1 {
			from, to = 4, 3
		}
		if err := engine.MoveVisit("VISIT-0001", from, to, "planner"); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	if got := len(engine.Movements()); got != movementLogCap {
		t.Errorf("movement log holds %d entries, expected cap %d", got, movementLogCap)
	}
}
