package acwr

import (
	"fmt"
	"time"
)

// DecayResult holds one weighted-average pass over an activity set. When
// ActivityCount is zero every numeric field is exactly 0.0; otherwise
// TotalWeight > 0 and the averages equal sum/TotalWeight.
type DecayResult struct {
	WeightedLoadSum  float64
	WeightedTRIMPSum float64
	TotalWeight      float64
	WeightedLoadAvg  float64
	WeightedTRIMPAvg float64
	ActivityCount    int
	DecayRate        float64
	Method           string
}

// WeightedAverages aggregates the activities into decay-weighted sums and
// averages relative to refDate. An empty input is not an error: it produces
// the all-zero result, which is the defined meaning of "no data available".
// An activity dated after refDate is a caller error and fails fast.
func WeightedAverages(activities []Activity, decayRate float64, refDate time.Time) (DecayResult, error) {
	if !ValidateDecayRate(decayRate) {
		return DecayResult{}, fmt.Errorf("%w: got %g", ErrInvalidDecayRate, decayRate)
	}

	res := DecayResult{DecayRate: decayRate, Method: MethodExponentialDecay}
	if len(activities) == 0 {
		return res, nil
	}

	for _, a := range activities {
		w, err := Weight(DaysBetween(a.Date, refDate), decayRate)
		if err != nil {
			return DecayResult{}, fmt.Errorf("activity on %s: %w", Day(a.Date).Format("2006-01-02"), err)
		}
		res.WeightedLoadSum += w * a.LoadMiles
		res.WeightedTRIMPSum += w * a.TRIMP
		res.TotalWeight += w
	}

	res.ActivityCount = len(activities)
	res.finish()
	return res, nil
}

// finish derives the averages and applies the 3-decimal rounding contract.
func (r *DecayResult) finish() {
	if r.TotalWeight > 0 {
		r.WeightedLoadAvg = r.WeightedLoadSum / r.TotalWeight
		r.WeightedTRIMPAvg = r.WeightedTRIMPSum / r.TotalWeight
	}
	r.WeightedLoadSum = Round3(r.WeightedLoadSum)
	r.WeightedTRIMPSum = Round3(r.WeightedTRIMPSum)
	r.TotalWeight = Round3(r.TotalWeight)
	r.WeightedLoadAvg = Round3(r.WeightedLoadAvg)
	r.WeightedTRIMPAvg = Round3(r.WeightedTRIMPAvg)
	r.DecayRate = Round3(r.DecayRate)
}
