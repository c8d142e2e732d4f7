package workflow

import (
	"testing"

	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"github.com/shopspring/decimal"
)

func intPtr(v int) *int {
	return &v
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func standardBands() []*models.AreaBand {
	return []*models.AreaBand{
		{ID: 1, MinArea: 0, MaxArea: 150, Multiplier: dec("1.0"), Position: 1},
		{ID: 2, MinArea: 151, MaxArea: 225, Multiplier: dec("1.5"), Position: 2},
		{ID: 3, MinArea: 226, MaxArea: 300, Multiplier: dec("2.0"), Position: 3},
	}
}

func TestResolveBand_BoundariesInclusive(t *testing.T) {
	bands := standardBands()

	cases := []struct {
		area   string
		bandId int
	}{
		{"0", 1},
		{"150", 1},
		{"150.99", 0}, // gap between bands
		{"151", 2},
		{"225", 2},
		{"226", 3},
		{"300", 3},
		{"300.01", 0},
	}
	for _, tc := range cases {
		band := resolveBand(bands, dec(tc.area))
		got := 0
		if band != nil {
			got = band.ID
		}
		if got != tc.bandId {
			t.Fatalf("area=%s expected band %d, got %d", tc.area, tc.bandId, got)
		}
	}
}

func TestResolveBand_FirstMatchWins(t *testing.T) {
	bands := []*models.AreaBand{
		{ID: 10, MinArea: 0, MaxArea: 200, Multiplier: dec("1.0"), Position: 1},
		{ID: 11, MinArea: 100, MaxArea: 300, Multiplier: dec("2.0"), Position: 2},
	}
	band := resolveBand(bands, dec("150"))
	if band == nil || band.ID != 10 {
		t.Fatalf("expected overlapping area to resolve to the first band, got %+v", band)
	}
}

func TestRateBookResolve_PrefersBandedRow(t *testing.T) {
	book := &rateBook{}
	book.put(1, 5, intPtr(2), rateEntry{Base: dec("200")})
	book.put(1, 5, nil, rateEntry{Base: dec("100")})

	if got := book.resolve(1, 5, 2).Base; !got.Equal(dec("200")) {
		t.Fatalf("expected banded row base 200, got %s", got)
	}
	if got := book.resolve(1, 5, 3).Base; !got.Equal(dec("100")) {
		t.Fatalf("expected bandless fallback base 100, got %s", got)
	}
	if got := book.resolve(1, 9, 2).Base; !got.IsZero() {
		t.Fatalf("expected zero base when no row matches, got %s", got)
	}
}

func TestRateBookPut_FirstRowWinsOnDuplicates(t *testing.T) {
	book := &rateBook{}
	book.put(1, 5, nil, rateEntry{Base: dec("100")})
	book.put(1, 5, nil, rateEntry{Base: dec("999")})

	if got := book.resolve(1, 5, 0).Base; !got.Equal(dec("100")) {
		t.Fatalf("expected first duplicate to win, got base %s", got)
	}
}

func TestComputeAmount_RoundsToTwoPlaces(t *testing.T) {
	entry := rateEntry{Base: dec("100.555"), FurnishedExtra: dec("10"), SemiExtra: dec("5")}

	got := computeAmount(entry, dec("1"), models.FurnishingNone)
	if !got.Equal(dec("100.56")) {
		t.Fatalf("expected 100.56, got %s", got)
	}
	got = computeAmount(entry, dec("1"), models.FurnishingFull)
	if !got.Equal(dec("110.56")) {
		t.Fatalf("expected 110.56 with furnished surcharge, got %s", got)
	}
	got = computeAmount(entry, dec("1"), models.FurnishingSemi)
	if !got.Equal(dec("105.56")) {
		t.Fatalf("expected 105.56 with semi surcharge, got %s", got)
	}
}

func TestComputeRecord_BandMultiplierAndSurcharge(t *testing.T) {
	bands := standardBands()

	prices := &rateBook{}
	prices.put(7, 5, nil, rateEntry{Base: dec("150"), FurnishedExtra: dec("30"), SemiExtra: dec("15")})
	payouts := &rateBook{}
	payouts.put(3, 5, nil, rateEntry{Base: dec("80"), FurnishedExtra: dec("15"), SemiExtra: dec("8")})

	record := &models.InspectionRecord{
		AgencyId:      7,
		InspectorId:   3,
		ServiceTypeId: intPtr(5),
		BillableArea:  dec("151"),
		Furnishing:    models.FurnishingFull,
	}
	amounts := computeRecord(record, bands, prices, payouts)

	// 150 * 1.5 + 30
	if !amounts.Receivable.Equal(dec("255.00")) {
		t.Fatalf("expected receivable 255.00, got %s", amounts.Receivable)
	}
	// 80 * 1.5 + 15
	if !amounts.Payable.Equal(dec("135.00")) {
		t.Fatalf("expected payable 135.00, got %s", amounts.Payable)
	}
	if amounts.BandId == nil || *amounts.BandId != 2 {
		t.Fatalf("expected band 2, got %v", amounts.BandId)
	}
}

func TestComputeRecord_NoBandMeansMultiplierOne(t *testing.T) {
	prices := &rateBook{}
	prices.put(7, 5, nil, rateEntry{Base: dec("150")})
	payouts := &rateBook{}

	record := &models.InspectionRecord{
		AgencyId:      7,
		InspectorId:   3,
		ServiceTypeId: intPtr(5),
		BillableArea:  dec("400"),
		Furnishing:    models.FurnishingNone,
	}
	amounts := computeRecord(record, nil, prices, payouts)

	if !amounts.Receivable.Equal(dec("150.00")) {
		t.Fatalf("expected receivable 150.00 without a band, got %s", amounts.Receivable)
	}
	if !amounts.Payable.IsZero() {
		t.Fatalf("expected zero payable when no payout row exists, got %s", amounts.Payable)
	}
	if amounts.BandId != nil {
		t.Fatalf("expected nil band id, got %d", *amounts.BandId)
	}
}

func TestComputeRecord_MissingServiceTypeFallsToZero(t *testing.T) {
	prices := &rateBook{}
	prices.put(7, 5, nil, rateEntry{Base: dec("150")})

	record := &models.InspectionRecord{
		AgencyId:     7,
		InspectorId:  3,
		BillableArea: dec("100"),
		Furnishing:   models.FurnishingNone,
	}
	amounts := computeRecord(record, standardBands(), prices, &rateBook{})

	if !amounts.Receivable.IsZero() {
		t.Fatalf("expected zero receivable without a service type, got %s", amounts.Receivable)
	}
}

func TestResultSummary(t *testing.T) {
	result := &CalculationResult{
		TotalRecords:    10,
		CalculatedCount: 8,
		TotalReceivable: dec("1234.5"),
		TotalPayable:    dec("600"),
		Errors:          []RecordError{{RecordId: 1, Message: "x"}, {RecordId: 2, Message: "y"}},
	}
	got := resultSummary(result)
	want := "records=10 calculated=8 receivable=1234.50 payable=600.00 errors=2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
