package outlier

import "vectorbench/internal/stats"

// minColdStartSamples is the smallest sample the order-aware detector
// considers: the window plus at least a few steady-state runs.
const minColdStartSamples = 5

// DetectColdStart looks for warm-up overhead at the head of an ordered
// sample: for each window size 1..ColdStartMaxWindow it checks whether the
// mean of the leading runs is at least ColdStartRatio times the mean of the
// remaining runs. Among qualifying windows the one with the best CV
// improvement wins, and it must improve CV by more than
// ColdStartMinImprovementPP. Returns the leading indices, or nil when no
// such pattern exists.
//
// This catches initialization effects that value-only tests miss: two slow
// runs out of ten are often inside the 3*IQR bounds but are still obviously
// cold-start artifacts when they are the first two.
func DetectColdStart(values []float64, cfg Config) []int {
	if len(values) < minColdStartSamples {
		return nil
	}

	before, err := stats.Describe(values)
	if err != nil || !before.Defined {
		return nil
	}

	var best []int
	bestImprovement := 0.0

	for window := 1; window <= cfg.ColdStartMaxWindow; window++ {
		// Keep at least three steady-state runs past the window.
		if window >= len(values)-2 {
			break
		}

		meanHead, _ := stats.Mean(values[:window])
		meanTail, _ := stats.Mean(values[window:])
		if meanTail <= 0 || meanHead < cfg.ColdStartRatio*meanTail {
			continue
		}

		after, err := stats.Describe(values[window:])
		if err != nil || !after.Defined {
			continue
		}

		improvement := before.Aggregate.CVPercent - after.Aggregate.CVPercent
		if improvement > bestImprovement {
			bestImprovement = improvement
			best = indexRange(window)
		}
	}

	if bestImprovement > cfg.ColdStartMinImprovementPP {
		return best
	}
	return nil
}

func indexRange(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
