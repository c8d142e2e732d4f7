package utils

import (
	"testing"
	"time"
)

func TestTokenLifespan_DefaultsToEightHours(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "")
	if got := TokenLifespan(); got != 8*time.Hour {
		t.Fatalf("expected 8h default, got %s", got)
	}
}

func TestTokenLifespan_ReadsEnvOverride(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "2")
	if got := TokenLifespan(); got != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", got)
	}
}

func TestTokenLifespan_IgnoresInvalidValues(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0"} {
		t.Setenv("TOKEN_HOUR_LIFESPAN", raw)
		if got := TokenLifespan(); got != 8*time.Hour {
			t.Fatalf("TOKEN_HOUR_LIFESPAN=%q: expected 8h fallback, got %s", raw, got)
		}
	}
}

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate(42, "ana@example.com", "Ana", "ADMIN")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("expected a valid token")
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatal("expected JwtCustomClaim claims")
	}
	if claims.ID != 42 || claims.Email != "ana@example.com" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
