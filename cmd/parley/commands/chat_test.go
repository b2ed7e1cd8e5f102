package commands

import "testing"

func TestAddPeerDedupesAndDefaultsRecipient(t *testing.T) {
	r := &repl{room: "r1", self: "me"}

	if r.addPeer("") {
		t.Fatal("empty identity accepted")
	}
	if r.addPeer("me") {
		t.Fatal("own identity accepted")
	}

	if !r.addPeer("alice") {
		t.Fatal("first peer rejected")
	}
	if r.recipient != "alice" {
		t.Fatalf("recipient: got %q, want alice", r.recipient)
	}

	// The same identity may arrive via both user-connected and an
	// exchange-keys offer; it must be listed once.
	if r.addPeer("alice") {
		t.Fatal("duplicate peer accepted")
	}

	if !r.addPeer("bob") {
		t.Fatal("second peer rejected")
	}
	if r.recipient != "alice" {
		t.Fatalf("recipient changed to %q on later peer", r.recipient)
	}
	if len(r.peers) != 2 {
		t.Fatalf("peers: %v", r.peers)
	}
}
