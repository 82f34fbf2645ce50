package report

import (
	"errors"
	"fmt"

	"vectorbench/internal/outlier"
	"vectorbench/internal/sample"
	"vectorbench/internal/stats"
)

// Summary is the before/after statistics block of a Record.
type Summary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	CV   float64 `json:"cv"`
}

func summaryFrom(agg stats.Aggregate) Summary {
	return Summary{Mean: agg.Mean, Std: agg.Std, Min: agg.Min, Max: agg.Max, CV: agg.CVPercent}
}

// Record is the serializable per-metric cleaning record consumed by the
// plotting stage. It is a pure function of the input sample and the
// cleaning decision; recomputing statistics over CleanedValues reproduces
// After within floating-point tolerance.
type Record struct {
	Metric          string    `json:"metric"`
	NOriginal       int       `json:"n_original"`
	NCleaned        int       `json:"n_cleaned"`
	OutliersRemoved []float64 `json:"outliers_removed"`
	DetectionMethod string    `json:"detection_method"`
	Before          Summary   `json:"before"`
	After           Summary   `json:"after"`
	CleanedValues   []float64 `json:"cleaned_values,omitempty"`
	Note            string    `json:"note,omitempty"`
}

// FromCleaning builds the Record for one metric's cleaning decision.
func FromCleaning(metric string, res outlier.Result) Record {
	rec := Record{
		Metric:          metric,
		NOriginal:       len(res.Original),
		NCleaned:        len(res.Cleaned),
		OutliersRemoved: append([]float64(nil), res.OutlierValues...),
		DetectionMethod: string(res.Method),
		Before:          summaryFrom(res.Before),
		After:           summaryFrom(res.After),
		CleanedValues:   append([]float64(nil), res.Cleaned...),
		Note:            res.Reason,
	}
	if rec.OutliersRemoved == nil {
		rec.OutliersRemoved = []float64{}
	}
	return rec
}

// recordFor cleans one sample with the selected policy chain and never
// returns an error for degenerate input: empty or mean-zero samples come
// back as a "none" record carrying a diagnostic note, so one bad metric
// cannot abort the rest of a report.
func recordFor(s sample.Sample, cfg outlier.Config, opts Options) Record {
	if err := s.Validate(); err != nil {
		if errors.Is(err, sample.ErrNoValues) {
			return Record{
				Metric:          s.Metric,
				DetectionMethod: string(outlier.MethodNone),
				OutliersRemoved: []float64{},
				Note:            "empty sample",
			}
		}
		return Record{
			Metric:          s.Metric,
			NOriginal:       len(s.Values),
			DetectionMethod: string(outlier.MethodNone),
			OutliersRemoved: []float64{},
			Note:            err.Error(),
		}
	}

	var res outlier.Result
	switch opts.Method {
	case MethodZScore:
		res = cfg.CleanModifiedZScore(s.Values)
	default:
		if opts.TwoPass {
			res = cfg.Clean(s.Values)
		} else {
			res = cfg.CleanConservative(s.Values)
		}
	}

	if opts.ColdStart && !res.Removed() {
		// Order-aware fallback: value-only tests missed it, but the slow
		// runs may all sit at the head of the sample.
		if cs := cfg.CleanColdStart(s.Values); cs.Removed() {
			res = cs
		}
	}

	return FromCleaning(s.Metric, res)
}

// Method selects the value-based detection policy for a cleaning run.
type Method string

const (
	// MethodIQR runs the IQR protocol (conservative, optionally two-pass).
	MethodIQR Method = "iqr"
	// MethodZScore runs a single modified Z-score pass.
	MethodZScore Method = "zscore"
)

// Options configures a cleaning run over a set of samples.
type Options struct {
	Method Method
	// TwoPass enables the aggressive IQR pass on metrics whose CV stays
	// above the configured threshold after the conservative pass.
	TwoPass bool
	// ColdStart enables the order-aware fallback for metrics the
	// value-based policy left untouched.
	ColdStart bool
}

// Build produces one Record per sample, continuing past degenerate
// metrics. The order of records follows the order of samples.
func Build(samples []sample.Sample, cfg outlier.Config, opts Options) []Record {
	records := make([]Record, 0, len(samples))
	for _, s := range samples {
		records = append(records, recordFor(s, cfg, opts))
	}
	return records
}

// Verify recomputes statistics from a record's cleaned values and checks
// them against the stored After block. tol is an absolute tolerance.
func Verify(rec Record, tol float64) error {
	if len(rec.CleanedValues) == 0 {
		if rec.NCleaned == 0 {
			return nil
		}
		return fmt.Errorf("record %q: n_cleaned=%d but no cleaned values stored", rec.Metric, rec.NCleaned)
	}

	res, err := stats.Describe(rec.CleanedValues)
	if err != nil {
		return fmt.Errorf("record %q: %w", rec.Metric, err)
	}
	agg := res.Aggregate

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"mean", agg.Mean, rec.After.Mean},
		{"std", agg.Std, rec.After.Std},
		{"min", agg.Min, rec.After.Min},
		{"max", agg.Max, rec.After.Max},
		{"cv", agg.CVPercent, rec.After.CV},
	}
	for _, c := range checks {
		if diff := c.got - c.want; diff > tol || diff < -tol {
			return fmt.Errorf("record %q: recomputed %s %.6f differs from stored %.6f", rec.Metric, c.name, c.got, c.want)
		}
	}
	return nil
}
