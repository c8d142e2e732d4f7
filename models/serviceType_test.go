package models

import "testing"

func TestParseServiceTypeLabel(t *testing.T) {
	cases := []struct {
		label string
		code  string
		name  string
	}{
		{"1.0 - VISTORIA DE ENTRADA", "1.0", "VISTORIA DE ENTRADA"},
		{"2.0- VISTORIA DE SAÍDA", "2.0", "VISTORIA DE SAÍDA"},
		{"3.0 – VISTORIA DE CONFERÊNCIA", "3.0", "VISTORIA DE CONFERÊNCIA"},
		{"10 - LAUDO", "10", "LAUDO"},
	}
	for _, tc := range cases {
		code, name := ParseServiceTypeLabel(tc.label)
		if code != tc.code || name != tc.name {
			t.Fatalf("label=%q expected (%q, %q), got (%q, %q)", tc.label, tc.code, tc.name, code, name)
		}
	}
}

func TestParseServiceTypeLabel_NoSeparator(t *testing.T) {
	code, name := ParseServiceTypeLabel("LAUDO")
	if code != "LAUDO" || name != "LAUDO" {
		t.Fatalf("expected the label itself, got (%q, %q)", code, name)
	}

	long := "VISTORIA CAUTELAR COMPLETA"
	code, name = ParseServiceTypeLabel(long)
	if code != "VISTORIA C" {
		t.Fatalf("expected code truncated to 10 chars, got %q", code)
	}
	if name != long {
		t.Fatalf("expected full label as name, got %q", name)
	}
}
