package utils

import "testing"

func TestComparePassword(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(string(hashed), "s3cret-pass"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := ComparePassword(string(hashed), "wrong-pass"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestComparePassword_MalformedHash(t *testing.T) {
	// a corrupted stored hash must fail the check, never pass it
	if err := ComparePassword("not-a-bcrypt-hash", "s3cret-pass"); err == nil {
		t.Fatal("expected error for malformed stored hash")
	}
	if err := ComparePassword("", "s3cret-pass"); err == nil {
		t.Fatal("expected error for empty stored hash")
	}
}
