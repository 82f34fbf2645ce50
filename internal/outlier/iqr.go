package outlier

import (
	"math"

	"vectorbench/internal/stats"
)

// minIQRSamples is the smallest sample for which quartiles are meaningful.
// Below this the IQR detector flags nothing.
const minIQRSamples = 4

// IQRBounds returns the [Q1 - k*IQR, Q3 + k*IQR] interval for values.
// Quartiles use linear interpolation on the sorted sample. Samples smaller
// than minIQRSamples get unbounded limits.
func IQRBounds(values []float64, k float64) (lower, upper float64) {
	if len(values) < minIQRSamples {
		return math.Inf(-1), math.Inf(1)
	}

	q1, _ := stats.Percentile(values, 25)
	q3, _ := stats.Percentile(values, 75)
	iqr := q3 - q1

	return q1 - k*iqr, q3 + k*iqr
}

// detectIQR returns the indices of values strictly outside the k*IQR bounds,
// in input order.
func detectIQR(values []float64, k float64) (indices []int, lower, upper float64) {
	lower, upper = IQRBounds(values, k)
	for i, v := range values {
		if v < lower || v > upper {
			indices = append(indices, i)
		}
	}
	return indices, lower, upper
}
