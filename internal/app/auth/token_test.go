package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.Generate(42, "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a", time.Hour).Generate(1, "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewIssuer("secret-b", time.Hour).Validate(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("secret", time.Nanosecond)

	token, err := issuer.Generate(1, "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Validate(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := NewIssuer("secret", time.Hour).Validate("not-a-jwt"); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestHashTokenStableAndHex(t *testing.T) {
	a := HashToken("token-1")
	b := HashToken("token-1")
	if a != b {
		t.Fatal("hash not deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == HashToken("token-2") {
		t.Fatal("distinct tokens collided")
	}
}
