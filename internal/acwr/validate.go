package acwr

import (
	"math"
	"time"
)

// Bounds for the chronic lookback window.
const (
	MinChronicPeriodDays = 28
	MaxChronicPeriodDays = 90
)

// ValidateDecayRate reports whether r is usable as an exponential decay rate:
// a finite number in (0, 1].
func ValidateDecayRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r > 0 && r <= 1
}

// ValidateChronicPeriod reports whether days is an acceptable chronic window
// length.
func ValidateChronicPeriod(days int) bool {
	return days >= MinChronicPeriodDays && days <= MaxChronicPeriodDays
}

// ValidateActivities reports whether every activity has a usable date no
// later than refDate and non-negative, finite load values. The check is
// advisory: callers that load data from untrusted sources should run it
// before invoking the calculators.
func ValidateActivities(activities []Activity, refDate time.Time) bool {
	for _, a := range activities {
		if a.Date.IsZero() {
			return false
		}
		if DaysBetween(a.Date, refDate) < 0 {
			return false
		}
		if a.LoadMiles < 0 || a.TRIMP < 0 {
			return false
		}
		if math.IsNaN(a.LoadMiles) || math.IsNaN(a.TRIMP) {
			return false
		}
	}
	return true
}
