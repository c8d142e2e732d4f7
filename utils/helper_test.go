package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"98,5", "98.5"},
		{"98.5", "98.5"},
		{" 120 ", "120"},
		{"0,00", "0"},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.input)
		if err != nil {
			t.Fatalf("input=%q unexpected error: %v", tc.input, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("input=%q expected %s, got %s", tc.input, tc.want, got)
		}
	}

	if _, err := ParseDecimal(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if _, err := ParseDecimal("abc"); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"admin@pratesvistorias.com.br", "a.b+c@d.co"}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Fatalf("expected %q to be valid", email)
		}
	}
	invalid := []string{"", "no-at.com", "x@y", "x@.com"}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Fatalf("expected %q to be invalid", email)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected [a b c], got %v", got)
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 7
	if got := DereferencePtr(&v); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := DereferencePtr[int](nil); got != 0 {
		t.Fatalf("expected zero value, got %d", got)
	}
	if got := DereferencePtr[int](nil, 42); got != 42 {
		t.Fatalf("expected default 42, got %d", got)
	}
}
