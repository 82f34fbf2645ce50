package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vectorbench/internal/sample"
	"vectorbench/internal/stats"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [results-dir]",
	Short: "Recompute stored statistics and check them against the raw values",
	Long: `Walk a results tree and recompute mean, std, min, max and CV from the
raw per-run values stored in each aggregated_results.json, comparing
them against the stored aggregates within a floating-point tolerance.

Useful after cleaning, or when results have been hand-edited: a mismatch
means a document's statistics no longer describe its values.

Example:
  vectorbench verify ./results --tolerance 1e-6`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Float64("tolerance", 1e-6, "Absolute tolerance for statistic comparisons")
}

func runVerify(cmd *cobra.Command, args []string) error {
	resultsDir := viper.GetString("results_dir")
	if len(args) == 1 {
		resultsDir = args[0]
	}
	tol, _ := cmd.Flags().GetFloat64("tolerance")

	paths, err := sample.FindAggregated(resultsDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found under %s", sample.AggregatedFileName, resultsDir)
	}

	var checked, mismatches int
	for _, path := range paths {
		doc, err := sample.LoadAggregated(path)
		if err != nil {
			return err
		}

		fileOK := true
		for _, s := range doc.Samples() {
			checked++
			ms := doc.Statistics[s.Metric]
			if err := verifyMetric(s.Values, ms, tol); err != nil {
				mismatches++
				fileOK = false
				fmt.Printf("❌ %s: %s: %v\n", path, s.Metric, err)
			}
		}
		if fileOK {
			fmt.Printf("✅ %s: %d metrics verified\n", path, len(doc.Statistics))
		}
	}

	fmt.Printf("\nVerified %d metrics across %d files\n", checked, len(paths))
	if mismatches > 0 {
		return fmt.Errorf("%d metrics failed verification", mismatches)
	}
	fmt.Println("All stored statistics match their values")
	return nil
}

// verifyMetric recomputes the aggregate from values and compares it field
// by field with the stored statistics.
func verifyMetric(values []float64, ms *sample.MetricStats, tol float64) error {
	res, err := stats.Describe(values)
	if err != nil {
		return err
	}
	agg := res.Aggregate

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"mean", agg.Mean, ms.Mean},
		{"std", agg.Std, ms.Std},
		{"min", agg.Min, ms.Min},
		{"max", agg.Max, ms.Max},
		{"cv_percent", agg.CVPercent, ms.CVPercent},
	}
	for _, c := range checks {
		if diff := c.got - c.want; diff > tol || diff < -tol {
			return fmt.Errorf("recomputed %s %.6f differs from stored %.6f", c.name, c.got, c.want)
		}
	}
	if ms.N != len(values) {
		return fmt.Errorf("stored n %d differs from value count %d", ms.N, len(values))
	}
	return nil
}
