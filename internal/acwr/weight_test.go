package acwr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeightZeroLagIsOne(t *testing.T) {
	for _, rate := range []float64{0.01, 0.05, 0.1, 0.5, 1.0} {
		w, err := Weight(0, rate)
		require.NoError(t, err)
		require.InDelta(t, 1.0, w, 1e-12)
	}
}

func TestWeightDecaysWithAge(t *testing.T) {
	prev, err := Weight(0, 0.1)
	require.NoError(t, err)

	for d := 1; d <= 90; d++ {
		w, err := Weight(d, 0.1)
		require.NoError(t, err)
		require.Less(t, w, prev, "weight must strictly decrease with days ago (d=%d)", d)
		require.Greater(t, w, 0.0)
		prev = w
	}
}

func TestWeightDecaysWithRate(t *testing.T) {
	rates := []float64{0.01, 0.05, 0.1, 0.3, 0.7, 1.0}
	prev, err := Weight(10, rates[0])
	require.NoError(t, err)

	for _, rate := range rates[1:] {
		w, err := Weight(10, rate)
		require.NoError(t, err)
		require.Less(t, w, prev, "higher decay rate must weigh the same day less (rate=%g)", rate)
		prev = w
	}
}

func TestWeightRejectsBadInputs(t *testing.T) {
	_, err := Weight(-1, 0.1)
	require.ErrorIs(t, err, ErrFutureActivity)

	for _, rate := range []float64{0, -0.1, 1.5} {
		_, err := Weight(3, rate)
		require.ErrorIs(t, err, ErrInvalidDecayRate, "rate %g", rate)
	}
}

func TestWeightTableMatchesWeight(t *testing.T) {
	table := weightTable(28, 0.05)
	require.Len(t, table, 29)
	for d := 0; d <= 28; d++ {
		w, err := Weight(d, 0.05)
		require.NoError(t, err)
		require.Equal(t, w, table[d])
	}
}
