package workflow

import (
	"testing"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"github.com/shopspring/decimal"
)

func TestReceivableDueDate(t *testing.T) {
	cases := []struct {
		month, year, payDay int
		want                time.Time
	}{
		{7, 2026, 10, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)},
		// December rolls into January of the next year
		{12, 2025, 15, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		// pay-day past the month's last day is clipped
		{1, 2026, 31, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{3, 2026, 31, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)},
		{5, 2026, 0, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := ReceivableDueDate(tc.month, tc.year, tc.payDay)
		if !got.Equal(tc.want) {
			t.Fatalf("month=%d year=%d payDay=%d expected %s, got %s",
				tc.month, tc.year, tc.payDay, tc.want.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestPayablePayDate(t *testing.T) {
	got := PayablePayDate(7, 2026)
	if !got.Equal(time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2026-08-20, got %s", got.Format("2006-01-02"))
	}
	got = PayablePayDate(12, 2025)
	if !got.Equal(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2026-01-20, got %s", got.Format("2006-01-02"))
	}
}

func TestGroupRecords_FirstSeenOrderAndTotals(t *testing.T) {
	records := []*models.InspectionRecord{
		{AgencyId: 2, ReceivableAmt: dec("100")},
		{AgencyId: 1, ReceivableAmt: dec("50")},
		{AgencyId: 2, ReceivableAmt: dec("25.50")},
	}
	names := map[int]string{1: "Casa Nova", 2: "Imob Central"}

	groups := groupRecords(records,
		func(r *models.InspectionRecord) int { return r.AgencyId },
		func(r *models.InspectionRecord) string { return names[r.AgencyId] },
		func(r *models.InspectionRecord) decimal.Decimal { return r.ReceivableAmt })

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Id != 2 || groups[1].Id != 1 {
		t.Fatalf("expected first-seen order [2 1], got [%d %d]", groups[0].Id, groups[1].Id)
	}
	if groups[0].Name != "Imob Central" {
		t.Fatalf("unexpected group name %q", groups[0].Name)
	}
	if !groups[0].Total.Equal(dec("125.50")) {
		t.Fatalf("expected group total 125.50, got %s", groups[0].Total)
	}
	if len(groups[0].Records) != 2 || len(groups[1].Records) != 1 {
		t.Fatalf("unexpected record counts %d/%d", len(groups[0].Records), len(groups[1].Records))
	}
}

func TestFurnishingLabel(t *testing.T) {
	if got := furnishingLabel(models.FurnishingFull); got != "Sim" {
		t.Fatalf("expected Sim, got %q", got)
	}
	if got := furnishingLabel(models.FurnishingSemi); got != "Semi" {
		t.Fatalf("expected Semi, got %q", got)
	}
	if got := furnishingLabel(models.FurnishingNone); got != "Não" {
		t.Fatalf("expected Não, got %q", got)
	}
}

func TestOrEmptyDash(t *testing.T) {
	if got := orEmptyDash(""); got != "-" {
		t.Fatalf("expected dash, got %q", got)
	}
	if got := orEmptyDash("123.456.789-00"); got != "123.456.789-00" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
