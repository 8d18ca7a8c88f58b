package tracker

import (
	"testing"
	"time"
)

func fixesAt(times ...int64) []LocationFix {
	fixes := make([]LocationFix, 0, len(times))
	for _, ts := range times {
		fixes = append(fixes, LocationFix{Time: ts, Latitude: float64(ts), Longitude: -float64(ts)})
	}
	return fixes
}

func TestFindClosestFix(t *testing.T) {
	fixes := fixesAt(10, 20, 30)

	tests := []struct {
		name     string
		target   int64
		found    bool
		expected int64
	}{
		{"between fixes", 25, true, 20},
		{"exactly on a fix", 20, true, 10},
		{"on the last fix", 30, true, 20},
		{"before first fix", 5, false, 0},
		{"after last fix", 35, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix, ok := FindClosestFix(time.Unix(tt.target, 0), fixes)
			if ok != tt.found {
				t.Fatalf("Expected found=%v, got %v", tt.found, ok)
			}
			if ok && fix.Time != tt.expected {
				t.Errorf("Expected fix at %d, got %d", tt.expected, fix.Time)
			}
		})
	}
}

func TestFindClosestFixShortInput(t *testing.T) {
	if _, ok := FindClosestFix(time.Unix(10, 0), nil); ok {
		t.Error("Expected no fix for empty input")
	}
	if _, ok := FindClosestFix(time.Unix(10, 0), fixesAt(5)); ok {
		t.Error("Expected no fix for a single element")
	}
}

func TestLocationFixAt(t *testing.T) {
	fix := LocationFix{Time: 1700000000}
	if !fix.At().Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Expected %v, got %v", time.Unix(1700000000, 0), fix.At())
	}
	if fix.At().Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", fix.At().Location())
	}
}
