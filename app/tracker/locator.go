package tracker

import "time"

// FindClosestFix returns the fix preceding the first fix at or after target,
// scanning the feed's ascending order without sorting. A target exactly on a
// fix therefore gets the fix before it. It reports false when no fix at or
// after target exists and when target is earlier than the first fix.
func FindClosestFix(target time.Time, fixes []LocationFix) (LocationFix, bool) {
	epoch := target.Unix()
	if len(fixes) < 2 || fixes[0].Time > epoch {
		return LocationFix{}, false
	}
	for i := 1; i < len(fixes); i++ {
		if fixes[i].Time >= epoch {
			return fixes[i-1], true
		}
	}
	return LocationFix{}, false
}
