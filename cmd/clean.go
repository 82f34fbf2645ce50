package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vectorbench/internal/outlier"
	"vectorbench/internal/report"
	"vectorbench/internal/sample"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [results-dir]",
	Short: "Detect and remove statistical outliers from aggregated results",
	Long: `Walk a results tree, clean outliers from every aggregated_results.json
and write a cleaning report.

The conservative pass removes values outside [Q1-3*IQR, Q3+3*IQR] and
keeps the removal only when it improves the coefficient of variation by
more than 10 percentage points. With --aggressive, metrics that remain
noisy (CV > 40%) get a second 2x IQR pass. With --cold-start, metrics the
value-based tests left untouched are checked for slow leading runs.
Cleaned files are rewritten in place with an audit block recording what
was removed and why.

Examples:
  vectorbench clean ./results
  vectorbench clean ./results --aggressive --cold-start
  vectorbench clean ./results --method zscore --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringP("method", "m", "iqr", "Detection method: iqr or zscore")
	cleanCmd.Flags().Bool("aggressive", false, "Enable the second 2x IQR pass on high-CV metrics")
	cleanCmd.Flags().Bool("cold-start", false, "Enable cold-start detection on metrics with no value outliers")
	cleanCmd.Flags().Bool("dry-run", false, "Report what would be removed without rewriting files")
	cleanCmd.Flags().String("report", "", "Cleaning report path (default <results-dir>/outlier_cleaning_report.json)")
}

// cleanConfig assembles the outlier thresholds from viper so the config
// file and environment can override every knob.
func cleanConfig() outlier.Config {
	return outlier.Config{
		IQRKConservative:           viper.GetFloat64("clean.iqr_k_conservative"),
		IQRKAggressive:             viper.GetFloat64("clean.iqr_k_aggressive"),
		AggressiveCVThreshold:      viper.GetFloat64("clean.aggressive_cv_threshold"),
		MinImprovementPP:           viper.GetFloat64("clean.min_improvement_pp"),
		AggressiveMinImprovementPP: viper.GetFloat64("clean.aggressive_min_improvement_pp"),
		AggressiveFinalCVTarget:    viper.GetFloat64("clean.aggressive_final_cv_target"),
		ZScoreThreshold:            viper.GetFloat64("clean.zscore_threshold"),
		MinRetainedSamples:         viper.GetInt("clean.min_retained_samples"),
		ColdStartRatio:             viper.GetFloat64("clean.cold_start_ratio"),
		ColdStartMaxWindow:         viper.GetInt("clean.cold_start_max_window"),
		ColdStartMinImprovementPP:  viper.GetFloat64("clean.cold_start_min_improvement_pp"),
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	resultsDir := viper.GetString("results_dir")
	if len(args) == 1 {
		resultsDir = args[0]
	}
	methodFlag, _ := cmd.Flags().GetString("method")
	aggressive, _ := cmd.Flags().GetBool("aggressive")
	coldStart, _ := cmd.Flags().GetBool("cold-start")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	reportPath, _ := cmd.Flags().GetString("report")

	var method report.Method
	switch methodFlag {
	case "iqr":
		method = report.MethodIQR
	case "zscore":
		method = report.MethodZScore
	default:
		return fmt.Errorf("unknown method %q (supported: iqr, zscore)", methodFlag)
	}

	paths, err := sample.FindAggregated(resultsDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found under %s", sample.AggregatedFileName, resultsDir)
	}
	fmt.Printf("🔍 Found %d aggregated result files under %s\n\n", len(paths), resultsDir)

	cfg := cleanConfig()
	opts := report.Options{Method: method, TwoPass: aggressive, ColdStart: coldStart}
	now := time.Now().UTC()

	tree := report.TreeReport{CleanedAt: now.Format(time.RFC3339)}
	for _, path := range paths {
		doc, err := sample.LoadAggregated(path)
		if err != nil {
			return err
		}

		fr := report.CleanDocument(path, doc, cfg, opts, now)
		tree.Details = append(tree.Details, fr)
		tree.Summary.TotalFiles++

		switch fr.Status {
		case report.StatusCleaned:
			tree.Summary.FilesCleaned++
			tree.Summary.TotalOutliersRemoved += fr.OutliersRemoved
			fmt.Printf("🧹 %s\n", path)
			for _, rec := range fr.Records {
				if len(rec.OutliersRemoved) == 0 {
					continue
				}
				fmt.Printf("   %s: removed %d via %s (CV %.1f%% → %.1f%%)\n",
					rec.Metric, len(rec.OutliersRemoved), rec.DetectionMethod,
					rec.Before.CV, rec.After.CV)
			}
			if !dryRun {
				if err := sample.SaveAggregated(path, doc); err != nil {
					return err
				}
			}
		case report.StatusNoStatistics:
			fmt.Printf("⚠️  %s: no statistics block, skipped\n", path)
		default:
			fmt.Printf("✅ %s: no outliers\n", path)
		}
	}

	if reportPath == "" {
		reportPath = filepath.Join(resultsDir, "outlier_cleaning_report.json")
	}
	if err := sample.WriteJSON(reportPath, tree); err != nil {
		return err
	}

	fmt.Printf("\nCleaning complete: %d/%d files cleaned, %d outliers removed\n",
		tree.Summary.FilesCleaned, tree.Summary.TotalFiles, tree.Summary.TotalOutliersRemoved)
	if dryRun {
		fmt.Println("Dry run: result files were not modified")
	}
	fmt.Printf("Report saved to: %s\n", reportPath)
	return nil
}
