package outlier

import (
	"math"

	"vectorbench/internal/stats"
)

// zScale relates the MAD to the standard deviation of a normal distribution.
const zScale = 0.6745

// ModifiedZScores returns the modified Z-score 0.6745*(x-median)/MAD for
// every value. When the MAD is zero (at least half the values identical)
// all scores are zero, so nothing gets flagged.
func ModifiedZScores(values []float64) []float64 {
	scores := make([]float64, len(values))
	if len(values) == 0 {
		return scores
	}

	median, _ := stats.Median(values)

	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - median)
	}
	mad, _ := stats.Median(dev)
	if mad == 0 {
		return scores
	}

	for i, v := range values {
		scores[i] = zScale * (v - median) / mad
	}
	return scores
}

// detectModifiedZ returns the indices of values with |Z| above threshold.
func detectModifiedZ(values []float64, threshold float64) []int {
	var indices []int
	for i, z := range ModifiedZScores(values) {
		if math.Abs(z) > threshold {
			indices = append(indices, i)
		}
	}
	return indices
}
