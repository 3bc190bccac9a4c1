// Package acwr implements the exponential-decay training-load engine:
// weighted rolling averages over activity history and the Acute:Chronic
// Workload Ratio metrics derived from them. The package is pure computation;
// it performs no I/O and owns no cross-call state, so it is safe to call
// concurrently on independent inputs.
package acwr

import "time"

// Activity is one day's recorded training load for a user. LoadMiles is the
// external load (distance), TRIMP the internal physiological load derived
// from heart-rate data. Values are immutable during a calculation; weights
// are tracked separately and never attached to the activity itself.
type Activity struct {
	Date      time.Time
	LoadMiles float64
	TRIMP     float64
}

// Day truncates t to midnight UTC so that date arithmetic works in whole
// calendar days regardless of the time component stored upstream.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from `from` to `to`.
// The result is negative when `from` is after `to`.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// distinctDays counts the unique calendar days covered by the activities.
func distinctDays(activities []Activity) int {
	seen := make(map[time.Time]struct{}, len(activities))
	for _, a := range activities {
		seen[Day(a.Date)] = struct{}{}
	}
	return len(seen)
}

// distinctDaysWithin counts unique calendar days that fall inside the
// lookback window of `windowDays` days ending at refDate (inclusive).
func distinctDaysWithin(activities []Activity, refDate time.Time, windowDays int) int {
	seen := make(map[time.Time]struct{}, len(activities))
	for _, a := range activities {
		ago := DaysBetween(a.Date, refDate)
		if ago >= 0 && ago < windowDays {
			seen[Day(a.Date)] = struct{}{}
		}
	}
	return len(seen)
}
