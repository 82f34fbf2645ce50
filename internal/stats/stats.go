package stats

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptySample is returned when statistics are requested over zero elements.
var ErrEmptySample = errors.New("stats: empty sample")

// ErrDegenerateSample is returned when an aggregate with a defined CV is
// demanded over a sample whose mean is zero.
var ErrDegenerateSample = errors.New("stats: mean is zero, cv undefined")

// Aggregate is a read-only summary of one sample.
//
// Std is the population standard deviation (N denominator), matching the
// aggregation convention used by the scaling experiments this tool replaces.
type Aggregate struct {
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	CVPercent float64 `json:"cv_percent"`
}

// Result is a tagged aggregate: Defined is false when the coefficient of
// variation cannot be computed (mean == 0). The remaining fields of the
// aggregate are still populated so callers can report them, but CVPercent
// is zero and must not be interpreted as a real CV.
type Result struct {
	Aggregate Aggregate
	Defined   bool
	Reason    string
}

// Describe computes mean, population std, min, max and CV% over values.
// It returns ErrEmptySample for a zero-length input. A zero mean yields a
// Result with Defined=false rather than NaN or Inf.
func Describe(values []float64) (Result, error) {
	if len(values) == 0 {
		return Result{}, ErrEmptySample
	}

	agg := Aggregate{
		N:   len(values),
		Min: values[0],
		Max: values[0],
	}

	var sum float64
	for _, v := range values {
		sum += v
		if v < agg.Min {
			agg.Min = v
		}
		if v > agg.Max {
			agg.Max = v
		}
	}
	agg.Mean = sum / float64(len(values))

	var sumsq float64
	for _, v := range values {
		d := v - agg.Mean
		sumsq += d * d
	}
	agg.Std = math.Sqrt(sumsq / float64(len(values)))

	if agg.Mean == 0 {
		return Result{Aggregate: agg, Defined: false, Reason: "cv undefined, mean=0"}, nil
	}

	agg.CVPercent = agg.Std / agg.Mean * 100
	return Result{Aggregate: agg, Defined: true}, nil
}

// MustDescribe is Describe for callers that require a defined CV.
func MustDescribe(values []float64) (Aggregate, error) {
	res, err := Describe(values)
	if err != nil {
		return Aggregate{}, err
	}
	if !res.Defined {
		return res.Aggregate, ErrDegenerateSample
	}
	return res.Aggregate, nil
}

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation on the sorted sample, the same estimator as np.percentile.
// The input is not modified.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySample
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	s := append([]float64(nil), values...)
	sort.Float64s(s)

	h := (float64(len(s)) - 1) * p / 100
	lo := int(math.Floor(h))
	if lo >= len(s)-1 {
		return s[len(s)-1], nil
	}
	frac := h - float64(lo)
	return s[lo] + frac*(s[lo+1]-s[lo]), nil
}

// Median returns the 50th percentile of values.
func Median(values []float64) (float64, error) {
	return Percentile(values, 50)
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptySample
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}
