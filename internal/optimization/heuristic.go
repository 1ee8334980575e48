package optimization

import "math"

// EtaMax caps the heuristic when travel time is zero.
const EtaMax = 1e6

// Eta returns the greedy desirability S/D of moving to a node.
func Eta(s, d float64) float64 {
	if s <= 0 {
		return 0
	}
	if d <= 0 {
		return EtaMax
	}
	return s / d
}

// EtaMatrix computes Eta for every ordered pair (i, j) with i != j.
// Pairs without a travel time are treated as unreachable.
func EtaMatrix(s []float64, d map[[2]int]float64) map[[2]int]float64 {
	out := make(map[[2]int]float64, len(s)*len(s))
	for i := range s {
		for j := range s {
			if i == j {
				continue
			}
			dij, ok := d[[2]int{i, j}]
			if !ok || math.IsInf(dij, 1) {
				out[[2]int{i, j}] = 0
				continue
			}
			out[[2]int{i, j}] = Eta(s[j], dij)
		}
	}
	return out
}
