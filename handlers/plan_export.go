package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportWeeklyPlan downloads the weekly plan as an Excel workbook, one
// sheet for the whole week with a section per day.
func (h *PlannerHandler) ExportWeeklyPlan(w http.ResponseWriter, r *http.Request) {
	week, year, err := weekParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan := h.engine.BuildWeeklyPlan(week, year)

	excelFile, err := createPlanExcelFile(&plan)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	buffer, err := excelFile.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("weekly_plan_W%02d_%d_%s.xlsx", week, year, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

var planColumns = []string{"Visit ID", "Company", "Branch", "Type", "Status", "Priority", "Team", "Duration (h)"}

// createPlanExcelFile lays a weekly plan out as one sheet with a
// day-header row above each day's visits.
func createPlanExcelFile(plan *WeeklyPlan) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Weekly Plan"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Weekly Maintenance Plan - Week %d, %d", plan.WeekNumber, plan.Year))
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("%s to %s", plan.WeekStartDate, plan.WeekEndDate))
	f.SetCellValue(sheetName, "A3", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")))

	dayStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E7E6E6"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for colIdx := range planColumns {
		f.SetColWidth(sheetName, planColumnLetter(colIdx+1), planColumnLetter(colIdx+1), 20)
	}

	row := 5
	for _, day := range plan.Days {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheetName, cell, fmt.Sprintf("%s %s (%d visits, %.1f h)", day.DayName, day.Date, day.VisitCount, day.TotalHours))
		endCell, _ := excelize.CoordinatesToCellName(len(planColumns), row)
		f.MergeCell(sheetName, cell, endCell)
		f.SetCellStyle(sheetName, cell, endCell, dayStyle)
		row++

		for colIdx, header := range planColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			f.SetCellValue(sheetName, cell, header)
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}
		row++

		for _, v := range day.Visits {
			values := []interface{}{
				v.VisitID,
				v.CompanyName,
				v.BranchName,
				v.Type,
				v.Status,
				valueOrEmpty(v.Priority),
				valueOrEmpty(v.AssignedTeam),
				"",
			}
			if v.Duration != nil {
				values[7] = *v.Duration
			}
			for colIdx, value := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
				f.SetCellValue(sheetName, cell, value)
			}
			row++
		}
		row++ // blank spacer row between days
	}

	if plan.SkippedVisits > 0 {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheetName, cell, fmt.Sprintf("%d visit(s) with unreadable dates were excluded", plan.SkippedVisits))
	}

	f.DeleteSheet("Sheet1")

	return f, nil
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func planColumnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+(col%26))) + result
		col /= 26
	}
	return result
}
