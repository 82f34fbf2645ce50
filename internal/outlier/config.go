package outlier

// Config holds every tunable of the cleaning pipeline. All thresholds were
// previously scattered across the experiment scripts as module constants;
// they live here as one value object passed explicitly into each pass.
type Config struct {
	// IQR multipliers for the conservative and aggressive passes.
	IQRKConservative float64
	IQRKAggressive   float64

	// The aggressive pass only considers metrics whose CV% is still above
	// this threshold after the conservative pass.
	AggressiveCVThreshold float64

	// Minimum CV improvement (percentage points) required to commit a
	// conservative or modified-Z cleaning decision.
	MinImprovementPP float64

	// The aggressive pass accepts a decision when CV improves by more than
	// AggressiveMinImprovementPP, or when the final CV lands below
	// AggressiveFinalCVTarget.
	AggressiveMinImprovementPP float64
	AggressiveFinalCVTarget    float64

	// Modified Z-score cutoff: |Z| > ZScoreThreshold flags an outlier.
	ZScoreThreshold float64

	// Cleaning never reduces a sample below this many elements.
	MinRetainedSamples int

	// Cold-start detection: the first window runs are flagged when their
	// mean is at least ColdStartRatio times the mean of the remaining runs.
	// Windows 1..ColdStartMaxWindow are tried; the winning window must
	// improve CV by more than ColdStartMinImprovementPP.
	ColdStartRatio            float64
	ColdStartMaxWindow        int
	ColdStartMinImprovementPP float64
}

// DefaultConfig returns the thresholds used by the published experiments.
func DefaultConfig() Config {
	return Config{
		IQRKConservative:           3,
		IQRKAggressive:             2,
		AggressiveCVThreshold:      40,
		MinImprovementPP:           10,
		AggressiveMinImprovementPP: 5,
		AggressiveFinalCVTarget:    30,
		ZScoreThreshold:            3.5,
		MinRetainedSamples:         3,
		ColdStartRatio:             3.0,
		ColdStartMaxWindow:         3,
		ColdStartMinImprovementPP:  15,
	}
}
