package acwr

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testRef = time.Date(2025, time.September, 7, 0, 0, 0, 0, time.UTC)

// uniformActivities builds one activity per day going back `days` days from
// the reference date, all carrying the same load values.
func uniformActivities(days int, load, trimp float64) []Activity {
	out := make([]Activity, 0, days)
	for d := 0; d < days; d++ {
		out = append(out, Activity{
			Date:      testRef.AddDate(0, 0, -d),
			LoadMiles: load,
			TRIMP:     trimp,
		})
	}
	return out
}

func TestWeightedAveragesEmptyInput(t *testing.T) {
	res, err := WeightedAverages(nil, 0.1, testRef)
	require.NoError(t, err)

	require.Zero(t, res.WeightedLoadSum)
	require.Zero(t, res.WeightedTRIMPSum)
	require.Zero(t, res.TotalWeight)
	require.Zero(t, res.WeightedLoadAvg)
	require.Zero(t, res.WeightedTRIMPAvg)
	require.Zero(t, res.ActivityCount)
	require.Equal(t, MethodExponentialDecay, res.Method)
}

func TestWeightedAveragesSingleActivityOnReferenceDate(t *testing.T) {
	res, err := WeightedAverages([]Activity{{Date: testRef, LoadMiles: 12.5, TRIMP: 9.25}}, 0.1, testRef)
	require.NoError(t, err)

	require.Equal(t, 1, res.ActivityCount)
	require.InDelta(t, 12.5, res.WeightedLoadAvg, 1e-9)
	require.InDelta(t, 9.25, res.WeightedTRIMPAvg, 1e-9)
	require.InDelta(t, 1.0, res.TotalWeight, 1e-9)
}

func TestWeightedAveragesUniformDataEqualsConstant(t *testing.T) {
	res, err := WeightedAverages(uniformActivities(28, 10.0, 8.0), 0.05, testRef)
	require.NoError(t, err)

	// Weights cancel in the average when every day carries the same value.
	require.InDelta(t, 10.0, res.WeightedLoadAvg, 1e-9)
	require.InDelta(t, 8.0, res.WeightedTRIMPAvg, 1e-9)
	require.Equal(t, 28, res.ActivityCount)
}

func TestWeightedAveragesBoundedByExtremes(t *testing.T) {
	activities := []Activity{
		{Date: testRef, LoadMiles: 3.0, TRIMP: 2.0},
		{Date: testRef.AddDate(0, 0, -1), LoadMiles: 15.0, TRIMP: 11.0},
		{Date: testRef.AddDate(0, 0, -5), LoadMiles: 7.5, TRIMP: 6.0},
		{Date: testRef.AddDate(0, 0, -12), LoadMiles: 0.0, TRIMP: 0.0},
	}

	res, err := WeightedAverages(activities, 0.1, testRef)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.WeightedLoadAvg, 0.0)
	require.LessOrEqual(t, res.WeightedLoadAvg, 15.0)
	require.GreaterOrEqual(t, res.WeightedTRIMPAvg, 0.0)
	require.LessOrEqual(t, res.WeightedTRIMPAvg, 11.0)
}

func TestWeightedAveragesRecentDataDominates(t *testing.T) {
	// Heavy recent load, light old load: the weighted average must sit above
	// the simple mean.
	activities := []Activity{
		{Date: testRef, LoadMiles: 20.0},
		{Date: testRef.AddDate(0, 0, -27), LoadMiles: 2.0},
	}

	res, err := WeightedAverages(activities, 0.2, testRef)
	require.NoError(t, err)
	require.Greater(t, res.WeightedLoadAvg, 11.0)
}

func TestWeightedAveragesRejectsFutureDates(t *testing.T) {
	activities := []Activity{{Date: testRef.AddDate(0, 0, 1), LoadMiles: 5.0}}
	_, err := WeightedAverages(activities, 0.1, testRef)
	require.ErrorIs(t, err, ErrFutureActivity)
}

func TestWeightedAveragesRejectsBadDecayRate(t *testing.T) {
	for _, rate := range []float64{0, -1, 1.01, math.NaN()} {
		_, err := WeightedAverages(uniformActivities(7, 10, 8), rate, testRef)
		require.ErrorIs(t, err, ErrInvalidDecayRate, "rate %g", rate)
	}
}

func TestWeightedAveragesRoundedToThreeDecimals(t *testing.T) {
	activities := []Activity{
		{Date: testRef, LoadMiles: 10.123456, TRIMP: 7.987654},
		{Date: testRef.AddDate(0, 0, -3), LoadMiles: 4.555555, TRIMP: 3.333333},
	}

	res, err := WeightedAverages(activities, 0.07, testRef)
	require.NoError(t, err)

	for _, v := range []float64{
		res.WeightedLoadSum, res.WeightedTRIMPSum, res.TotalWeight,
		res.WeightedLoadAvg, res.WeightedTRIMPAvg, res.DecayRate,
	} {
		require.Equal(t, Round3(v), v, "value %v must carry at most 3 decimals", v)
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, time.September, 5, 6, 30, 0, 0, time.UTC)
	evening := time.Date(2025, time.September, 7, 23, 45, 0, 0, time.UTC)
	require.Equal(t, 2, DaysBetween(morning, evening))
	require.Equal(t, -2, DaysBetween(evening, morning))
	require.Equal(t, 0, DaysBetween(evening, Day(evening)))
}
