package models

import "testing"

func TestClosureStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to ClosureStatus
	}{
		{ClosureStatusDraft, ClosureStatusImported},
		{ClosureStatusImported, ClosureStatusImported},
		{ClosureStatusImported, ClosureStatusCalculated},
		{ClosureStatusCalculated, ClosureStatusCalculated},
		{ClosureStatusCalculated, ClosureStatusAwaitingInspectors},
		{ClosureStatusAwaitingInspectors, ClosureStatusInReview},
		{ClosureStatusInReview, ClosureStatusAwaitingAgencies},
		{ClosureStatusAwaitingAgencies, ClosureStatusInvoiced},
		{ClosureStatusInvoiced, ClosureStatusFinalized},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct {
		from, to ClosureStatus
	}{
		{ClosureStatusDraft, ClosureStatusCalculated},
		{ClosureStatusDraft, ClosureStatusDraft},
		{ClosureStatusCalculated, ClosureStatusImported},
		{ClosureStatusFinalized, ClosureStatusInvoiced},
		{ClosureStatusInvoiced, ClosureStatusDraft},
		{ClosureStatusAwaitingInspectors, ClosureStatusAwaitingAgencies},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestClosureStatusGates(t *testing.T) {
	if !ClosureStatusDraft.CanImport() || !ClosureStatusImported.CanImport() {
		t.Fatal("draft and imported periods must accept imports")
	}
	if ClosureStatusCalculated.CanImport() {
		t.Fatal("calculated periods must not accept imports")
	}
	if !ClosureStatusImported.CanCalculate() || !ClosureStatusCalculated.CanCalculate() {
		t.Fatal("imported and calculated periods must accept calculation")
	}
	if ClosureStatusDraft.CanCalculate() {
		t.Fatal("draft periods must not accept calculation")
	}
	if ClosureStatusFinalized.CanCalculate() {
		t.Fatal("finalized periods must not accept calculation")
	}
}

func TestClosureStatusIsValid(t *testing.T) {
	if !ClosureStatusInReview.IsValid() {
		t.Fatal("expected IN_REVIEW to be valid")
	}
	if ClosureStatus("BOGUS").IsValid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestInspectionStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to InspectionStatus
	}{
		{InspectionStatusImported, InspectionStatusCalculated},
		{InspectionStatusCalculated, InspectionStatusCalculated},
		{InspectionStatusCalculated, InspectionStatusContested},
		{InspectionStatusCalculated, InspectionStatusApproved},
		{InspectionStatusContested, InspectionStatusRevised},
		{InspectionStatusRevised, InspectionStatusRevised},
		{InspectionStatusRevised, InspectionStatusApproved},
		{InspectionStatusApproved, InspectionStatusInvoiced},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct {
		from, to InspectionStatus
	}{
		{InspectionStatusImported, InspectionStatusApproved},
		{InspectionStatusContested, InspectionStatusApproved},
		{InspectionStatusApproved, InspectionStatusCalculated},
		{InspectionStatusInvoiced, InspectionStatusApproved},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}
