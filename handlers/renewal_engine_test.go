package handlers

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
	"github.com/hmztgr/salama-maintenance-system-sub002/utils"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestComputeRenewalWindow(t *testing.T) {
	tests := []struct {
		name          string
		start         string
		end           *string
		periodMonths  *int
		expectedStart string
		expectedEnd   string
		expectedDur   int
		expectErr     bool
	}{
		{
			name:          "explicit period",
			start:         "01-Jan-2024",
			end:           strPtr("31-Dec-2024"),
			periodMonths:  intPtr(12),
			expectedStart: "01-Jan-2025",
			expectedEnd:   "01-Jan-2026",
			expectedDur:   12,
		},
		{
			name:          "duration derived from span",
			start:         "01-Jan-2024",
			end:           strPtr("31-Dec-2024"),
			expectedStart: "01-Jan-2025",
			expectedEnd:   "01-Jan-2026",
			expectedDur:   12,
		},
		{
			name:          "six month term",
			start:         "01-Jan-2025",
			end:           strPtr("30-Jun-2025"),
			periodMonths:  intPtr(6),
			expectedStart: "01-Jul-2025",
			expectedEnd:   "01-Jan-2026",
			expectedDur:   6,
		},
		{
			name:          "period wins over span",
			start:         "01-Jan-2025",
			end:           strPtr("31-Dec-2025"),
			periodMonths:  intPtr(24),
			expectedStart: "01-Jan-2026",
			expectedEnd:   "01-Jan-2028",
			expectedDur:   24,
		},
		{
			name:      "missing end date",
			start:     "01-Jan-2025",
			expectErr: true,
		},
		{
			name:      "empty end date",
			start:     "01-Jan-2025",
			end:       strPtr(""),
			expectErr: true,
		},
		{
			name:      "unparsable end date",
			start:     "01-Jan-2025",
			end:       strPtr("Invalid Date"),
			expectErr: true,
		},
		{
			name:      "unparsable start without period",
			start:     "NaN",
			end:       strPtr("31-Dec-2025"),
			expectErr: true,
		},
		{
			name:      "zero span without period",
			start:     "01-Jan-2025",
			end:       strPtr("01-Jan-2025"),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Contract{
				ContractID:           "CNT-2024-0001",
				ContractStartDate:    tt.start,
				ContractEndDate:      tt.end,
				ContractPeriodMonths: tt.periodMonths,
			}
			w, err := computeRenewalWindow(c)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got window %+v", w)
				}
				var validationErr *RenewalValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("error = %v, expected *RenewalValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.durationMonths != tt.expectedDur {
				t.Errorf("duration = %d, expected %d", w.durationMonths, tt.expectedDur)
			}
			if got := utils.FormatDate(w.newStart); got != tt.expectedStart {
				t.Errorf("newStart = %s, expected %s", got, tt.expectedStart)
			}
			if got := utils.FormatDate(w.newEnd); got != tt.expectedEnd {
				t.Errorf("newEnd = %s, expected %s", got, tt.expectedEnd)
			}
		})
	}
}

func TestBuildSuccessor(t *testing.T) {
	docRef := "doc-7781"
	value := 48000.0
	predecessor := &models.Contract{
		ID:                uuid.New(),
		ContractID:        "CNT-2024-0001",
		CompanyID:         uuid.New(),
		ContractStartDate: "01-Jan-2024",
		ContractEndDate:   strPtr("31-Dec-2024"),
		ContractValue:     &value,
		DocumentRef:       &docRef,
		ServiceBatches: models.ServiceBatchList{{
			BatchID:                "batch-1",
			Services:               []string{"fire_extinguisher", "alarm_system"},
			BranchIDs:              []string{"b1", "b2"},
			RegularVisitsPerYear:   4,
			EmergencyVisitsPerYear: 2,
		}},
		ContractHistory: models.HistoryList{{Action: models.HistoryActionCreated}},
	}

	window, err := computeRenewalWindow(predecessor)
	if err != nil {
		t.Fatalf("computeRenewalWindow: %v", err)
	}
	successor := buildSuccessor(predecessor, window, "CNT-2025-0001", "admin@salama")

	if successor.ContractID != "CNT-2025-0001" {
		t.Errorf("ContractID = %s", successor.ContractID)
	}
	if successor.CompanyID != predecessor.CompanyID {
		t.Errorf("CompanyID not carried over")
	}
	if successor.ContractStartDate != "01-Jan-2025" {
		t.Errorf("start = %s, expected 01-Jan-2025", successor.ContractStartDate)
	}
	if successor.ContractEndDate == nil || *successor.ContractEndDate != "01-Jan-2026" {
		t.Errorf("end = %v, expected 01-Jan-2026", successor.ContractEndDate)
	}
	if successor.ContractPeriodMonths == nil || *successor.ContractPeriodMonths != 12 {
		t.Errorf("period = %v, expected 12", successor.ContractPeriodMonths)
	}
	if !successor.IsRenewed {
		t.Error("IsRenewed not set")
	}
	if successor.OriginalContractID == nil || *successor.OriginalContractID != "CNT-2024-0001" {
		t.Errorf("OriginalContractID = %v", successor.OriginalContractID)
	}
	if successor.Status != models.ContractStatusActive {
		t.Errorf("status = %s, expected active", successor.Status)
	}
	if successor.ContractValue == nil || *successor.ContractValue != value {
		t.Errorf("value = %v, expected %v", successor.ContractValue, value)
	}

	// The successor starts a fresh audit trail seeded with the renewal.
	if len(successor.ContractHistory) != 1 || successor.ContractHistory[0].Action != models.HistoryActionRenewed {
		t.Errorf("history = %+v, expected single renewed entry", successor.ContractHistory)
	}
	if len(successor.Addendums) != 0 {
		t.Errorf("addendums = %+v, expected none", successor.Addendums)
	}

	// Batches are copied structurally, never shared with the predecessor.
	if len(successor.ServiceBatches) != 1 {
		t.Fatalf("batches = %+v", successor.ServiceBatches)
	}
	predecessor.ServiceBatches[0].Services[0] = "mutated"
	predecessor.ServiceBatches[0].RegularVisitsPerYear = 99
	if successor.ServiceBatches[0].Services[0] != "fire_extinguisher" {
		t.Error("successor batch services share backing array with predecessor")
	}
	if successor.ServiceBatches[0].RegularVisitsPerYear != 4 {
		t.Error("successor batch quota mutated through predecessor")
	}
}

func TestServiceBatchListCopy(t *testing.T) {
	original := models.ServiceBatchList{{
		BatchID:   "batch-1",
		Services:  []string{"fire_extinguisher"},
		BranchIDs: []string{"b1"},
	}}
	clone := original.Copy()

	clone[0].Services[0] = "changed"
	clone[0].BranchIDs = append(clone[0].BranchIDs, "b2")
	if original[0].Services[0] != "fire_extinguisher" {
		t.Error("Copy shares the services slice")
	}
	if len(original[0].BranchIDs) != 1 {
		t.Error("Copy shares the branch ids slice")
	}

	if models.ServiceBatchList(nil).Copy() != nil {
		t.Error("Copy of nil should stay nil")
	}
}

func TestHistoryListAppend(t *testing.T) {
	base := models.HistoryList{{Action: models.HistoryActionCreated}}
	grown := base.Append(models.HistoryEntry{Action: models.HistoryActionUpdated})

	if len(base) != 1 {
		t.Errorf("receiver mutated, len = %d", len(base))
	}
	if len(grown) != 2 || grown[1].Action != models.HistoryActionUpdated {
		t.Errorf("appended list = %+v", grown)
	}
}
