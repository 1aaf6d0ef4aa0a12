package protocol

import "testing"

func TestSlotKind(t *testing.T) {
	kinds := []SlotKind{SlotEmpty, SlotInteger, SlotText, SlotOpaque}

	for i, kind := range kinds {
		if kind != SlotKind(i) {
			t.Errorf("Kind mismatch: got %d, want %d", kind, i)
		}
	}

	if SlotText.String() != "text" {
		t.Errorf("String mismatch: got %s, want text", SlotText)
	}
	if SlotKind(9).String() != "unknown" {
		t.Errorf("String mismatch: got %s, want unknown", SlotKind(9))
	}
}

func TestMembers(t *testing.T) {
	if len(Members) != 3 {
		t.Fatalf("component must expose exactly 3 members, got %d", len(Members))
	}

	seen := make(map[string]bool)
	for _, m := range Members {
		if seen[m] {
			t.Errorf("duplicate member %s", m)
		}
		seen[m] = true
	}
}

func TestScratchSigils(t *testing.T) {
	if NumericScratch[:2] != "##" {
		t.Errorf("numeric scratch must use ## sigil, got %s", NumericScratch)
	}
	if TextScratch[:2] != "$$" {
		t.Errorf("text scratch must use $$ sigil, got %s", TextScratch)
	}
}
