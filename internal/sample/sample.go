package sample

import (
	"errors"
	"fmt"

	"vectorbench/internal/stats"
)

// ErrNoValues is returned when a record carries an empty measurement list.
var ErrNoValues = errors.New("sample: no values")

// Sample is an ordered sequence of per-run measurements for one metric,
// collected across N independent runs of the same configuration. The
// metadata fields exist for reporting only; the statistics never look at
// them.
type Sample struct {
	Metric   string    `json:"metric"`
	Database string    `json:"database,omitempty"`
	Corpus   string    `json:"corpus,omitempty"`
	Values   []float64 `json:"values"`
}

// Validate rejects samples that the statistics layer cannot accept:
// zero-length value lists and negative measurements (every metric in this
// domain is a non-negative duration, latency or rate).
func (s Sample) Validate() error {
	if s.Metric == "" {
		return errors.New("sample: missing metric name")
	}
	if len(s.Values) == 0 {
		return fmt.Errorf("sample %q: %w", s.Metric, ErrNoValues)
	}
	for i, v := range s.Values {
		if v < 0 {
			return fmt.Errorf("sample %q: negative value %g at index %d", s.Metric, v, i)
		}
	}
	return nil
}

// MetricStats is the per-metric entry of an aggregated results document.
// Values keeps the raw per-run measurements so outliers can be re-examined
// after aggregation.
type MetricStats struct {
	Mean      float64   `json:"mean"`
	Std       float64   `json:"std"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	CVPercent float64   `json:"cv_percent"`
	N         int       `json:"n"`
	Values    []float64 `json:"values"`
}

// NewMetricStats computes a MetricStats entry from raw values. A sample
// with mean zero gets CVPercent 0; callers that need to distinguish the
// undefined case use stats.Describe directly.
func NewMetricStats(values []float64) (MetricStats, error) {
	res, err := stats.Describe(values)
	if err != nil {
		return MetricStats{}, err
	}
	agg := res.Aggregate
	return MetricStats{
		Mean:      agg.Mean,
		Std:       agg.Std,
		Min:       agg.Min,
		Max:       agg.Max,
		CVPercent: agg.CVPercent,
		N:         agg.N,
		Values:    append([]float64(nil), values...),
	}, nil
}

// Aggregate converts the stored moments back into a stats.Aggregate.
func (m MetricStats) Aggregate() stats.Aggregate {
	return stats.Aggregate{
		N:         m.N,
		Mean:      m.Mean,
		Std:       m.Std,
		Min:       m.Min,
		Max:       m.Max,
		CVPercent: m.CVPercent,
	}
}

// PassAudit describes one cleaning pass applied to a document.
type PassAudit struct {
	CleanedAt      string   `json:"cleaned_at"`
	Method         string   `json:"method"`
	CVThreshold    float64  `json:"cv_threshold,omitempty"`
	MetricsCleaned []string `json:"metrics_cleaned"`
	TotalOutliers  int      `json:"total_outliers"`
}

// CleaningAudit is attached to a document once outliers have been removed,
// so a reviewer can always answer "why did this number change".
type CleaningAudit struct {
	CleanedAt      string     `json:"cleaned_at"`
	Method         string     `json:"method"`
	MetricsCleaned []string   `json:"metrics_cleaned"`
	TotalOutliers  int        `json:"total_outliers_detected"`
	AggressivePass *PassAudit `json:"aggressive_pass,omitempty"`
	ColdStartPass  *PassAudit `json:"cold_start_pass,omitempty"`
}

// AggregatedResults is the aggregated_results.json document written after
// an N-run experiment and consumed by the cleaning and plotting stages.
type AggregatedResults struct {
	Database        string                  `json:"database"`
	Corpus          string                  `json:"corpus"`
	NRuns           int                     `json:"n_runs"`
	AggregatedAt    string                  `json:"aggregated_at"`
	Statistics      map[string]*MetricStats `json:"statistics"`
	OutlierCleaning *CleaningAudit          `json:"outlier_cleaning,omitempty"`
}

// Validate checks the invariants the cleaning stage relies on.
func (a *AggregatedResults) Validate() error {
	if a.NRuns < 1 {
		return fmt.Errorf("aggregated results: n_runs %d < 1", a.NRuns)
	}
	if len(a.Statistics) == 0 {
		return errors.New("aggregated results: no statistics")
	}
	for metric, ms := range a.Statistics {
		if ms == nil || len(ms.Values) == 0 {
			return fmt.Errorf("aggregated results: metric %q has no values", metric)
		}
		if ms.N != len(ms.Values) {
			return fmt.Errorf("aggregated results: metric %q n=%d but %d values", metric, ms.N, len(ms.Values))
		}
	}
	return nil
}

// Samples flattens the document into one Sample per metric.
func (a *AggregatedResults) Samples() []Sample {
	samples := make([]Sample, 0, len(a.Statistics))
	for metric, ms := range a.Statistics {
		samples = append(samples, Sample{
			Metric:   metric,
			Database: a.Database,
			Corpus:   a.Corpus,
			Values:   append([]float64(nil), ms.Values...),
		})
	}
	return samples
}
