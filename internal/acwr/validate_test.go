package acwr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDecayRate(t *testing.T) {
	for _, rate := range []float64{0.001, 0.05, 0.1, 0.5, 1.0} {
		require.True(t, ValidateDecayRate(rate), "rate %g", rate)
	}
	for _, rate := range []float64{0, -0.1, 1.5, math.NaN(), math.Inf(1)} {
		require.False(t, ValidateDecayRate(rate), "rate %g", rate)
	}
}

func TestValidateChronicPeriod(t *testing.T) {
	for _, days := range []int{28, 42, 90} {
		require.True(t, ValidateChronicPeriod(days), "days %d", days)
	}
	for _, days := range []int{0, 20, 27, 91, 365} {
		require.False(t, ValidateChronicPeriod(days), "days %d", days)
	}
}

func TestValidateActivities(t *testing.T) {
	good := uniformActivities(14, 10, 8)
	require.True(t, ValidateActivities(good, testRef))
	require.True(t, ValidateActivities(nil, testRef))

	future := append(uniformActivities(3, 10, 8), Activity{Date: testRef.AddDate(0, 0, 1), LoadMiles: 5})
	require.False(t, ValidateActivities(future, testRef))

	negative := []Activity{{Date: testRef, LoadMiles: -1, TRIMP: 4}}
	require.False(t, ValidateActivities(negative, testRef))

	badTRIMP := []Activity{{Date: testRef, LoadMiles: 1, TRIMP: math.NaN()}}
	require.False(t, ValidateActivities(badTRIMP, testRef))

	zeroDate := []Activity{{LoadMiles: 1, TRIMP: 1}}
	require.False(t, ValidateActivities(zeroDate, testRef))
}
