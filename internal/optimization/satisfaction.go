// Package optimization implements the satisfaction model, the hard-constraint
// registry, per-candidate scoring and the ant-colony tour constructor.
package optimization

import (
	"math"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
)

// AggregationMethod selects how soft-constraint scores are combined
type AggregationMethod string

const (
	AggregateSum            AggregationMethod = "sum"
	AggregateLeastMisery    AggregationMethod = "least_misery"
	AggregateMostPleasure   AggregationMethod = "most_pleasure"
	AggregateMultiplicative AggregationMethod = "multiplicative"
)

// WeightTolerance is the allowed deviation of a weight vector from 1.
const WeightTolerance = 1e-4

// ComputeHC returns 1 when every check passed and 0 on the first failure.
// An empty list passes.
func ComputeHC(results []int) int {
	for _, r := range results {
		if r == 0 {
			return 0
		}
	}
	return 1
}

// ComputeSC aggregates soft-constraint values with the given weights.
// Empty values yield 0. An empty method means weighted sum.
func ComputeSC(values, weights []float64, method AggregationMethod) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	if len(values) != len(weights) {
		return 0, errs.Validation("weights", "values length (%d) must equal weights length (%d)", len(values), len(weights))
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return 0, errs.Validation("weights", "weights sum to %.6f, expected 1.0", sum)
	}

	switch method {
	case AggregateSum, "":
		total := 0.0
		for i, v := range values {
			total += weights[i] * v
		}
		return total, nil
	case AggregateLeastMisery:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	case AggregateMostPleasure:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	case AggregateMultiplicative:
		product := 1.0
		for i, v := range values {
			if v <= 0 {
				return 0, nil
			}
			product *= math.Pow(v, weights[i])
		}
		return product, nil
	}
	return 0, errs.Validation("method", "unknown aggregation method %q", method)
}

// ComputeS combines the hard gate with the soft score.
func ComputeS(hc int, sc float64) float64 {
	if hc == 0 {
		return 0
	}
	return float64(hc) * sc
}

// Satisfaction is the result of the full HC -> SC -> S chain for one POI
type Satisfaction struct {
	HC       int     `json:"hc"`
	SC       float64 `json:"sc"`
	S        float64 `json:"s"`
	Feasible bool    `json:"feasible"`
}

// EvaluateSatisfaction runs the chain and skips SC entirely when HC is 0.
func EvaluateSatisfaction(hardResults []int, values, weights []float64, method AggregationMethod) (Satisfaction, error) {
	hc := ComputeHC(hardResults)
	if hc == 0 {
		return Satisfaction{}, nil
	}
	sc, err := ComputeSC(values, weights, method)
	if err != nil {
		return Satisfaction{}, err
	}
	return Satisfaction{HC: hc, SC: sc, S: ComputeS(hc, sc), Feasible: true}, nil
}
