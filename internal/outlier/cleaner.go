package outlier

import (
	"fmt"
	"math"

	"vectorbench/internal/stats"
)

// Method identifies which detection policy produced a cleaning decision.
type Method string

const (
	MethodNone            Method = "none"
	MethodIQRConservative Method = "iqr_conservative"
	MethodIQRAggressive   Method = "iqr_aggressive"
	MethodModifiedZScore  Method = "modified_zscore"
	MethodColdStart       Method = "cold_start"
)

// Result records a cleaning decision for one metric. Cleaned is always a
// subsequence of Original preserving relative order; when Method is
// MethodNone nothing was removed and After equals Before.
type Result struct {
	Original       []float64
	Cleaned        []float64
	OutlierIndices []int
	OutlierValues  []float64
	LowerBound     float64
	UpperBound     float64
	Before         stats.Aggregate
	After          stats.Aggregate
	Method         Method
	Reason         string
}

// Removed reports whether the decision removed any values.
func (r Result) Removed() bool {
	return r.Method != MethodNone && len(r.OutlierIndices) > 0
}

// CleanConservative applies the k=IQRKConservative IQR policy with the
// strict improvement gate (CV must drop by more than MinImprovementPP).
func (c Config) CleanConservative(values []float64) Result {
	indices, lower, upper := detectIQR(values, c.IQRKConservative)
	res := c.commit(values, indices, MethodIQRConservative, func(improvement, finalCV float64) bool {
		return improvement > c.MinImprovementPP
	})
	res.LowerBound, res.UpperBound = lower, upper
	return res
}

// CleanAggressive applies the k=IQRKAggressive IQR policy with the looser
// gate: CV improvement above AggressiveMinImprovementPP, or a final CV
// below AggressiveFinalCVTarget. Intended only for metrics whose CV stayed
// above AggressiveCVThreshold after the conservative pass.
func (c Config) CleanAggressive(values []float64) Result {
	indices, lower, upper := detectIQR(values, c.IQRKAggressive)
	res := c.commit(values, indices, MethodIQRAggressive, func(improvement, finalCV float64) bool {
		return improvement > c.AggressiveMinImprovementPP || finalCV < c.AggressiveFinalCVTarget
	})
	res.LowerBound, res.UpperBound = lower, upper
	return res
}

// CleanModifiedZScore flags values whose modified Z-score exceeds
// ZScoreThreshold, gated like the conservative pass.
func (c Config) CleanModifiedZScore(values []float64) Result {
	indices := detectModifiedZ(values, c.ZScoreThreshold)
	return c.commit(values, indices, MethodModifiedZScore, func(improvement, finalCV float64) bool {
		return improvement > c.MinImprovementPP
	})
}

// CleanColdStart removes leading warm-up runs identified by the order-aware
// detector. The detector carries its own improvement gate, so commit only
// enforces the retention floor.
func (c Config) CleanColdStart(values []float64) Result {
	indices := DetectColdStart(values, c)
	return c.commit(values, indices, MethodColdStart, func(improvement, finalCV float64) bool {
		return true
	})
}

// Clean runs the reference two-pass IQR protocol: a conservative pass, then
// an aggressive pass on the surviving values if their CV is still above
// AggressiveCVThreshold. Outlier indices always refer to the original
// sample.
func (c Config) Clean(values []float64) Result {
	first := c.CleanConservative(values)

	if first.After.CVPercent <= c.AggressiveCVThreshold {
		return first
	}

	second := c.CleanAggressive(first.Cleaned)
	if !second.Removed() {
		return first
	}

	// Map the second pass's indices back onto the original sample.
	kept := make([]int, 0, len(values))
	removed := make(map[int]bool, len(first.OutlierIndices))
	for _, i := range first.OutlierIndices {
		removed[i] = true
	}
	for i := range values {
		if !removed[i] {
			kept = append(kept, i)
		}
	}

	merged := Result{
		Original:   append([]float64(nil), values...),
		Cleaned:    second.Cleaned,
		LowerBound: second.LowerBound,
		UpperBound: second.UpperBound,
		Before:     first.Before,
		After:      second.After,
		Method:     MethodIQRAggressive,
	}
	merged.OutlierIndices = append(merged.OutlierIndices, first.OutlierIndices...)
	for _, i := range second.OutlierIndices {
		merged.OutlierIndices = append(merged.OutlierIndices, kept[i])
	}
	for _, i := range merged.OutlierIndices {
		merged.OutlierValues = append(merged.OutlierValues, values[i])
	}
	return merged
}

// commit evaluates the acceptance gate for a set of candidate outlier
// indices and produces the final Result. The input slice is never mutated.
func (c Config) commit(values []float64, indices []int, method Method, accept func(improvement, finalCV float64) bool) Result {
	res := Result{
		Original:   append([]float64(nil), values...),
		LowerBound: math.Inf(-1),
		UpperBound: math.Inf(1),
		Method:     MethodNone,
	}

	before, err := stats.Describe(values)
	if err != nil {
		res.Reason = "empty sample"
		return res
	}
	res.Before = before.Aggregate
	res.After = before.Aggregate
	res.Cleaned = append([]float64(nil), values...)

	if !before.Defined {
		res.Reason = before.Reason
		return res
	}
	if len(indices) == 0 {
		res.Reason = "no outliers detected"
		return res
	}

	retained := len(values) - len(indices)
	if retained < c.MinRetainedSamples {
		res.Reason = fmt.Sprintf("removal would retain %d < %d samples", retained, c.MinRetainedSamples)
		return res
	}

	flagged := make(map[int]bool, len(indices))
	for _, i := range indices {
		flagged[i] = true
	}
	cleaned := make([]float64, 0, retained)
	for i, v := range values {
		if !flagged[i] {
			cleaned = append(cleaned, v)
		}
	}

	after, err := stats.Describe(cleaned)
	if err != nil || !after.Defined {
		res.Reason = "cleaned sample has undefined cv"
		return res
	}

	improvement := before.Aggregate.CVPercent - after.Aggregate.CVPercent
	if !accept(improvement, after.Aggregate.CVPercent) {
		res.Reason = fmt.Sprintf("cv improvement %.1fpp below threshold", improvement)
		return res
	}

	res.Method = method
	res.Reason = ""
	res.Cleaned = cleaned
	res.After = after.Aggregate
	res.OutlierIndices = append([]int(nil), indices...)
	for _, i := range indices {
		res.OutlierValues = append(res.OutlierValues, values[i])
	}
	return res
}
