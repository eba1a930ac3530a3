package utils

import "testing"

func TestCallSlotScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if callSlotAcquireScript == nil || callSlotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestCallSlotKey(t *testing.T) {
	if got := callSlotKey("u1"); got != "call:active:u1" {
		t.Fatalf("unexpected key %q", got)
	}
}
