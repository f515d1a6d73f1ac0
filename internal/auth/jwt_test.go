package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	v, err := NewTokenVerifier("test-secret")
	if err != nil {
		t.Fatal(err)
	}

	token, err := v.Sign(42, "care_giver", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "care_giver" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	signer, _ := NewTokenVerifier("secret-a")
	verifier, _ := NewTokenVerifier("secret-b")

	token, err := signer.Sign(1, "admin", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("token signed with a different secret must not verify")
	}
}

func TestTokenExpired(t *testing.T) {
	v, _ := NewTokenVerifier("test-secret")

	token, err := v.Sign(1, "support", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestTokenGarbage(t *testing.T) {
	v, _ := NewTokenVerifier("test-secret")

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := v.Verify(tok); err == nil {
			t.Fatalf("garbage token %q verified", tok)
		}
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := NewTokenVerifier(""); err == nil {
		t.Fatal("empty secret must be rejected")
	}
}
