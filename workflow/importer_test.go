package workflow

import (
	"testing"

	"bitbucket.org/pratesvistorias/vistorias_backend/models"
)

func TestBuildHeaderMap_LowercasesAndKeepsFirst(t *testing.T) {
	headers := buildHeaderMap([]string{" ID ", "Cliente", "", "cliente", "Área Aferida"})

	if headers["id"] != 0 {
		t.Fatalf("expected id at column 0, got %d", headers["id"])
	}
	if headers["cliente"] != 1 {
		t.Fatalf("expected first cliente column to win, got %d", headers["cliente"])
	}
	if headers["área aferida"] != 4 {
		t.Fatalf("expected área aferida at column 4, got %d", headers["área aferida"])
	}
	if _, ok := headers[""]; ok {
		t.Fatal("blank header cells must not be indexed")
	}
}

func TestCellString_UsesAliases(t *testing.T) {
	headers := buildHeaderMap([]string{"endereco", "contrato"})
	cells := []string{" Rua A, 10 ", "C-123"}

	if got := headers.cellString(cells, "endereço", "endereco"); got != "Rua A, 10" {
		t.Fatalf("expected alias fallback to find endereco, got %q", got)
	}
	if got := headers.cellString(cells, "cidade"); got != "" {
		t.Fatalf("expected empty string for absent column, got %q", got)
	}
}

func TestCellNumber_CommaDecimalSeparator(t *testing.T) {
	headers := buildHeaderMap([]string{"área aferida", "área infor."})
	cells := []string{"98,5", "abc"}

	got := headers.cellNumber(cells, "área aferida", "area aferida")
	if got == nil || !got.Equal(dec("98.5")) {
		t.Fatalf("expected 98.5, got %v", got)
	}
	if headers.cellNumber(cells, "área infor.") != nil {
		t.Fatal("unparseable cells must yield nil")
	}
}

func TestExtractCity(t *testing.T) {
	cases := []struct {
		address string
		city    string
	}{
		{"Rua das Flores, 123 - Centro - São Paulo/SP - CEP 01234-567", "São Paulo"},
		{"Av. Brasil, 1000 - Campinas/SP", "Campinas"},
		{"Rua sem estado, 55", UnidentifiedCity},
		{"", UnidentifiedCity},
	}
	for _, tc := range cases {
		if got := ExtractCity(tc.address); got != tc.city {
			t.Fatalf("address=%q expected %q, got %q", tc.address, tc.city, got)
		}
	}
}

func TestNormalizeFurnishing(t *testing.T) {
	cases := []struct {
		value string
		want  models.FurnishingType
	}{
		{"SIM", models.FurnishingFull},
		{"s", models.FurnishingFull},
		{"Mobiliado", models.FurnishingFull},
		{"SEMI", models.FurnishingSemi},
		{"semi-mobiliado", models.FurnishingSemi},
		{"PARCIAL", models.FurnishingSemi},
		{"NÃO", models.FurnishingNone},
		{"", models.FurnishingNone},
		{"qualquer coisa", models.FurnishingNone},
	}
	for _, tc := range cases {
		if got := NormalizeFurnishing(tc.value); got != tc.want {
			t.Fatalf("value=%q expected %s, got %s", tc.value, tc.want, got)
		}
	}
}

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{"ID", "Cliente", "Vistoriadores", "Área Aferida", "Área à Faturar", "Mobiliado", "Tipo Serviço"},
		{"KSI-1", "Imob Central", "João", "98,5", "", "SIM", "1.0 - VISTORIA DE ENTRADA"},
		{"", "Imob Central", "João", "", "", "", ""},
		{"", "", "", "", "", "", ""},
		{"KSI-2", "", "Maria", "200", "180", "", ""},
	}

	result := ImportResult{Errors: []RowError{}}
	parsed := parseRows(rows, &result)

	// blank row is skipped entirely
	if result.Total != 3 {
		t.Fatalf("expected 3 counted rows, got %d", result.Total)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected 1 parsed row, got %d", len(parsed))
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 row errors, got %d", len(result.Errors))
	}
	if result.Errors[0].Row != 3 || result.Errors[0].Message != "id missing" {
		t.Fatalf("unexpected first error: %+v", result.Errors[0])
	}
	if result.Errors[1].Row != 5 || result.Errors[1].Message != "client missing" {
		t.Fatalf("unexpected second error: %+v", result.Errors[1])
	}

	row := parsed[0]
	if row.RowNumber != 2 {
		t.Fatalf("expected row number 2, got %d", row.RowNumber)
	}
	if row.KsiId != "KSI-1" || row.Client != "Imob Central" || row.Inspector != "João" {
		t.Fatalf("unexpected identity fields: %+v", row)
	}
	// billable falls back to measured when its own column is blank
	if !row.BillableArea.Equal(dec("98.5")) {
		t.Fatalf("expected billable 98.5, got %s", row.BillableArea)
	}
	if row.ServiceType != "1.0 - VISTORIA DE ENTRADA" {
		t.Fatalf("unexpected service type label %q", row.ServiceType)
	}
}

func TestParseRows_MissingAreasYieldZeroBillable(t *testing.T) {
	rows := [][]string{
		{"id", "cliente", "vistoriadores"},
		{"KSI-9", "Agência X", "Carlos"},
	}

	result := ImportResult{}
	parsed := parseRows(rows, &result)

	if len(parsed) != 1 {
		t.Fatalf("expected 1 parsed row, got %d", len(parsed))
	}
	if !parsed[0].BillableArea.IsZero() {
		t.Fatalf("expected zero billable area, got %s", parsed[0].BillableArea)
	}
	if parsed[0].MeasuredArea != nil || parsed[0].InformedArea != nil {
		t.Fatal("expected nil measured and informed areas")
	}
}

func TestImportSummary(t *testing.T) {
	result := &ImportResult{
		Total:         5,
		Imported:      4,
		Errors:        []RowError{{Row: 3, Message: "id missing"}},
		NewAgencies:   []string{"Nova Imob"},
		NewInspectors: []string{},
	}
	got := importSummary(result)
	want := "total=5 imported=4 errors=1 new_agencies=1 new_inspectors=0"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
