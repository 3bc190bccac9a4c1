package acwr

import (
	"errors"
	"fmt"
	"math"
)

// MethodExponentialDecay tags results produced by the decay-weighted engine.
const MethodExponentialDecay = "exponential_decay"

var (
	// ErrInvalidDecayRate is returned when the decay rate falls outside (0, 1].
	ErrInvalidDecayRate = errors.New("decay rate must be in (0, 1]")
	// ErrInvalidChronicPeriod is returned when the chronic period is outside [28, 90] days.
	ErrInvalidChronicPeriod = errors.New("chronic period must be between 28 and 90 days")
	// ErrFutureActivity is returned when an activity is dated after the reference date.
	ErrFutureActivity = errors.New("activity date is after the reference date")
)

// Weight returns the exponential decay weight exp(-decayRate*daysAgo).
// daysAgo 0 is the reference date itself and always weighs 1.0. The weight is
// monotonically non-increasing in both daysAgo and decayRate.
func Weight(daysAgo int, decayRate float64) (float64, error) {
	if daysAgo < 0 {
		return 0, fmt.Errorf("%w: days ago is %d", ErrFutureActivity, daysAgo)
	}
	if !ValidateDecayRate(decayRate) {
		return 0, fmt.Errorf("%w: got %g", ErrInvalidDecayRate, decayRate)
	}
	return math.Exp(-decayRate * float64(daysAgo)), nil
}

// weightTable precomputes weights for every days-ago value in [0, maxDaysAgo].
// The weight depends only on the integer day offset, so for a fixed reference
// date and decay rate a single table serves an entire activity set.
func weightTable(maxDaysAgo int, decayRate float64) []float64 {
	table := make([]float64, maxDaysAgo+1)
	for d := range table {
		table[d] = math.Exp(-decayRate * float64(d))
	}
	return table
}

// Round3 rounds to 3 decimal places, the precision contract for every numeric
// field the engine reports.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
