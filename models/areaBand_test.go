package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAreaBandContains(t *testing.T) {
	band := AreaBand{MinArea: 151, MaxArea: 225}

	if !band.Contains(decimal.NewFromInt(151)) {
		t.Fatal("lower bound must be inclusive")
	}
	if !band.Contains(decimal.NewFromInt(225)) {
		t.Fatal("upper bound must be inclusive")
	}
	if !band.Contains(decimal.RequireFromString("200.75")) {
		t.Fatal("fractional areas inside the band must match")
	}
	if band.Contains(decimal.RequireFromString("150.99")) {
		t.Fatal("areas below the band must not match")
	}
	if band.Contains(decimal.RequireFromString("225.01")) {
		t.Fatal("areas above the band must not match")
	}
}

func TestClosurePeriodReference(t *testing.T) {
	period := ClosurePeriod{Month: 7, Year: 2026}
	if got := period.Reference(); got != "07/2026" {
		t.Fatalf("expected 07/2026, got %q", got)
	}
	period = ClosurePeriod{Month: 12, Year: 2025}
	if got := period.Reference(); got != "12/2025" {
		t.Fatalf("expected 12/2025, got %q", got)
	}
}
