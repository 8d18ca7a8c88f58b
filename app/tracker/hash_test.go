package tracker

import "testing"

func TestContentHash(t *testing.T) {
	a := ContentHash("Title", "<p>Body</p>")
	b := ContentHash("Title", "<p>Body</p>")

	if a != b {
		t.Errorf("Expected stable hash, got %s and %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("Expected 16 hex characters, got %d", len(a))
	}
	if a == ContentHash("Title", "<p>Body!</p>") {
		t.Error("Expected different hash for changed HTML")
	}
	if ContentHash("ab", "c") == ContentHash("a", "bc") {
		t.Error("Expected title and HTML boundaries to affect the hash")
	}
}
