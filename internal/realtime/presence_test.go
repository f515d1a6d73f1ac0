package realtime

import "testing"

func TestPresenceLifecycle(t *testing.T) {
	p := NewPresence()

	if p.IsOnline("care_giver:1") {
		t.Fatal("empty registry reports online")
	}

	// Two devices for the same identity.
	p.Register("care_giver:1", "conn-a")
	p.Register("care_giver:1", "conn-b")
	p.Register("care_recipient:2", "conn-c")

	if !p.IsOnline("care_giver:1") || !p.IsOnline("care_recipient:2") {
		t.Fatal("registered identities must be online")
	}
	if p.OnlineCount() != 2 {
		t.Fatalf("OnlineCount = %d, want 2", p.OnlineCount())
	}

	// Identity stays online until its last connection goes away.
	p.Unregister("care_giver:1", "conn-a")
	if !p.IsOnline("care_giver:1") {
		t.Fatal("identity with one remaining device must stay online")
	}
	p.Unregister("care_giver:1", "conn-b")
	if p.IsOnline("care_giver:1") {
		t.Fatal("identity with no devices must be offline")
	}
	if p.OnlineCount() != 1 {
		t.Fatalf("OnlineCount = %d, want 1", p.OnlineCount())
	}

	// Unknown entries are ignored.
	p.Unregister("care_giver:1", "conn-z")
}
