package report

import (
	"time"

	"vectorbench/internal/outlier"
	"vectorbench/internal/sample"
)

// File statuses reported after cleaning one aggregated document.
const (
	StatusCleaned      = "cleaned"
	StatusNoOutliers   = "no_outliers"
	StatusNoStatistics = "no_statistics"
)

// FileReport summarizes what cleaning did to one aggregated results file.
type FileReport struct {
	File            string   `json:"file"`
	Status          string   `json:"status"`
	MetricsCleaned  []string `json:"metrics_cleaned"`
	OutliersRemoved int      `json:"outliers_removed"`
	OriginalN       int      `json:"original_n"`
	CleanedN        int      `json:"cleaned_n"`
	Records         []Record `json:"records"`
}

// TreeReport is the cleaning report for a whole results tree.
type TreeReport struct {
	CleanedAt string `json:"cleaned_at"`
	Summary   struct {
		TotalFiles           int `json:"total_files"`
		FilesCleaned         int `json:"files_cleaned"`
		TotalOutliersRemoved int `json:"total_outliers_removed"`
	} `json:"summary"`
	Details []FileReport `json:"details"`
}

// CleanDocument applies the configured cleaning passes to every metric in
// doc. Metrics that get cleaned have their statistics replaced with the
// post-cleaning aggregate, and an audit block is attached so the removal is
// traceable. The returned FileReport carries a Record per metric, including
// the untouched ones.
func CleanDocument(path string, doc *sample.AggregatedResults, cfg outlier.Config, opts Options, now time.Time) FileReport {
	fr := FileReport{
		File:      path,
		Status:    StatusNoOutliers,
		OriginalN: doc.NRuns,
		CleanedN:  doc.NRuns,
	}
	if len(doc.Statistics) == 0 {
		fr.Status = StatusNoStatistics
		return fr
	}

	fr.Records = Build(doc.Samples(), cfg, opts)

	var aggressive, coldStart *sample.PassAudit
	minN := doc.NRuns

	for _, rec := range fr.Records {
		if rec.DetectionMethod == string(outlier.MethodNone) || len(rec.OutliersRemoved) == 0 {
			continue
		}

		ms, err := sample.NewMetricStats(rec.CleanedValues)
		if err != nil {
			continue
		}
		doc.Statistics[rec.Metric] = &ms

		fr.MetricsCleaned = append(fr.MetricsCleaned, rec.Metric)
		fr.OutliersRemoved += len(rec.OutliersRemoved)
		if rec.NCleaned < minN {
			minN = rec.NCleaned
		}

		switch outlier.Method(rec.DetectionMethod) {
		case outlier.MethodIQRAggressive:
			aggressive = appendPassAudit(aggressive, "iqr_2x", cfg.AggressiveCVThreshold, rec, now)
		case outlier.MethodColdStart:
			coldStart = appendPassAudit(coldStart, "cold_start_detection", 0, rec, now)
		}
	}

	if len(fr.MetricsCleaned) == 0 {
		return fr
	}

	fr.Status = StatusCleaned
	fr.CleanedN = minN

	method := "iqr_3x"
	if opts.Method == MethodZScore {
		method = "modified_zscore"
	}
	doc.OutlierCleaning = &sample.CleaningAudit{
		CleanedAt:      now.Format(time.RFC3339),
		Method:         method,
		MetricsCleaned: fr.MetricsCleaned,
		TotalOutliers:  fr.OutliersRemoved,
		AggressivePass: aggressive,
		ColdStartPass:  coldStart,
	}
	return fr
}

func appendPassAudit(audit *sample.PassAudit, method string, cvThreshold float64, rec Record, now time.Time) *sample.PassAudit {
	if audit == nil {
		audit = &sample.PassAudit{
			CleanedAt:   now.Format(time.RFC3339),
			Method:      method,
			CVThreshold: cvThreshold,
		}
	}
	audit.MetricsCleaned = append(audit.MetricsCleaned, rec.Metric)
	audit.TotalOutliers += len(rec.OutliersRemoved)
	return audit
}
