package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
)

func TestComputeHC(t *testing.T) {
	tests := []struct {
		name    string
		results []int
		want    int
	}{
		{"empty passes", nil, 1},
		{"all pass", []int{1, 1, 1}, 1},
		{"single failure", []int{1, 0, 1}, 0},
		{"first failure", []int{0, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeHC(tt.results))
		})
	}
}

func TestComputeSCWeightedSum(t *testing.T) {
	sc, err := ComputeSC([]float64{0.8, 0.2}, []float64{0.5, 0.5}, AggregateSum)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sc, 1e-9)
}

func TestComputeSCMethods(t *testing.T) {
	values := []float64{0.9, 0.4, 0.6}
	weights := []float64{0.5, 0.3, 0.2}

	tests := []struct {
		method AggregationMethod
		want   float64
	}{
		{AggregateSum, 0.45 + 0.12 + 0.12},
		{"", 0.45 + 0.12 + 0.12},
		{AggregateLeastMisery, 0.4},
		{AggregateMostPleasure, 0.9},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			sc, err := ComputeSC(values, weights, tt.method)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, sc, 1e-9)
		})
	}
}

func TestComputeSCMultiplicativeCollapsesOnZero(t *testing.T) {
	sc, err := ComputeSC([]float64{0.9, 0}, []float64{0.5, 0.5}, AggregateMultiplicative)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sc)

	sc, err = ComputeSC([]float64{0.25, 1}, []float64{0.5, 0.5}, AggregateMultiplicative)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sc, 1e-9)
}

func TestComputeSCValidation(t *testing.T) {
	_, err := ComputeSC([]float64{0.5, 0.5}, []float64{0.5, 0.4}, AggregateSum)
	assert.True(t, errs.IsValidation(err))

	_, err = ComputeSC([]float64{0.5}, []float64{0.5, 0.5}, AggregateSum)
	assert.True(t, errs.IsValidation(err))

	_, err = ComputeSC([]float64{0.5}, []float64{1}, "median")
	assert.True(t, errs.IsValidation(err))

	sc, err := ComputeSC(nil, nil, AggregateSum)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sc)

	// within tolerance
	_, err = ComputeSC([]float64{0.5, 0.5}, []float64{0.5, 0.50005}, AggregateSum)
	assert.NoError(t, err)
}

func TestWeightedSumStaysWithinValueRange(t *testing.T) {
	values := []float64{0.1, 0.7, 0.35, 0.9}
	weightSets := [][]float64{
		{0.25, 0.25, 0.25, 0.25},
		{1, 0, 0, 0},
		{0.1, 0.2, 0.3, 0.4},
		{0, 0, 0, 1},
	}
	for _, w := range weightSets {
		sc, err := ComputeSC(values, w, AggregateSum)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sc, 0.1-1e-12)
		assert.LessOrEqual(t, sc, 0.9+1e-12)
	}
}

func TestEvaluateSatisfactionSkipsSCWhenGated(t *testing.T) {
	// malformed weights are never looked at when HC is 0
	sat, err := EvaluateSatisfaction([]int{1, 0}, []float64{1}, []float64{0.3}, AggregateSum)
	require.NoError(t, err)
	assert.Equal(t, 0, sat.HC)
	assert.Equal(t, 0.0, sat.S)
	assert.False(t, sat.Feasible)

	sat, err = EvaluateSatisfaction([]int{1, 1}, []float64{0.8, 0.2}, []float64{0.5, 0.5}, AggregateSum)
	require.NoError(t, err)
	assert.True(t, sat.Feasible)
	assert.InDelta(t, 0.5, sat.S, 1e-9)
}

func TestComputeS(t *testing.T) {
	assert.Equal(t, 0.0, ComputeS(0, 0.9))
	assert.Equal(t, 0.9, ComputeS(1, 0.9))
}

func TestEta(t *testing.T) {
	assert.Equal(t, 0.0, Eta(0, 10))
	assert.Equal(t, 0.0, Eta(-1, 10))
	assert.Equal(t, EtaMax, Eta(0.5, 0))
	assert.InDelta(t, 0.05, Eta(0.5, 10), 1e-12)
}

func TestEtaMatrixExcludesSelfPairs(t *testing.T) {
	s := []float64{0, 0.5, 1.0}
	d := map[[2]int]float64{
		{0, 1}: 10, {0, 2}: 20,
		{1, 0}: 10, {1, 2}: 5,
		{2, 0}: 20,
	}
	m := EtaMatrix(s, d)

	_, self := m[[2]int{1, 1}]
	assert.False(t, self)
	assert.InDelta(t, 0.05, m[[2]int{0, 1}], 1e-12)
	assert.InDelta(t, 0.2, m[[2]int{1, 2}], 1e-12)
	assert.Equal(t, 0.0, m[[2]int{2, 1}], "missing travel time is unreachable")
	assert.Equal(t, 0.0, m[[2]int{1, 0}], "zero satisfaction target")
}
