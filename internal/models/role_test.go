package models

import "testing"

func TestParseRole(t *testing.T) {
	for _, s := range []string{"care_giver", "care_recipient", "admin", "support"} {
		role, ok := ParseRole(s)
		if !ok || string(role) != s {
			t.Fatalf("ParseRole(%q) = (%q, %v)", s, role, ok)
		}
	}
	for _, s := range []string{"", "caregiver", "CARE_GIVER", "superuser"} {
		if _, ok := ParseRole(s); ok {
			t.Fatalf("ParseRole(%q) accepted", s)
		}
	}
}

func TestIsAgent(t *testing.T) {
	if !RoleAdmin.IsAgent() || !RoleSupport.IsAgent() {
		t.Fatal("admin and support are agents")
	}
	if RoleCareGiver.IsAgent() || RoleCareRecipient.IsAgent() {
		t.Fatal("marketplace roles are not agents")
	}
}

func TestUserKey(t *testing.T) {
	if got := UserKey(RoleCareGiver, 42); got != "care_giver:42" {
		t.Fatalf("UserKey = %q", got)
	}
}

func TestParseMessageType(t *testing.T) {
	mt, ok := ParseMessageType("")
	if !ok || mt != MessageTypeText {
		t.Fatalf("empty type must default to text, got (%q, %v)", mt, ok)
	}
	for _, s := range []string{"text", "settlement_request"} {
		mt, ok := ParseMessageType(s)
		if !ok || string(mt) != s {
			t.Fatalf("ParseMessageType(%q) = (%q, %v)", s, mt, ok)
		}
	}
	// Server-authored types never come from clients.
	for _, s := range []string{"settlement_confirmed", "settlement_dismissed", "gif"} {
		if _, ok := ParseMessageType(s); ok {
			t.Fatalf("ParseMessageType(%q) accepted", s)
		}
	}
}
