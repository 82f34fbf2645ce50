package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorbench/internal/outlier"
	"vectorbench/internal/sample"
)

func cleanTestDocument(t *testing.T) *sample.AggregatedResults {
	t.Helper()
	ingestion, err := sample.NewMetricStats(ingestionValues)
	require.NoError(t, err)
	latency, err := sample.NewMetricStats([]float64{5.1, 5.0, 5.2, 5.1, 5.0, 5.1, 5.2, 5.1, 5.0, 5.1})
	require.NoError(t, err)

	return &sample.AggregatedResults{
		Database:     "qdrant",
		Corpus:       "50k",
		NRuns:        10,
		AggregatedAt: "2026-08-23T10:00:00Z",
		Statistics: map[string]*sample.MetricStats{
			"ingestion_time": &ingestion,
			"p50_latency_ms": &latency,
		},
	}
}

func TestCleanDocument(t *testing.T) {
	doc := cleanTestDocument(t)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	fr := CleanDocument("a/aggregated_results.json", doc, outlier.DefaultConfig(), Options{Method: MethodIQR}, now)

	assert.Equal(t, StatusCleaned, fr.Status)
	assert.Equal(t, []string{"ingestion_time"}, fr.MetricsCleaned)
	assert.Equal(t, 2, fr.OutliersRemoved)
	assert.Equal(t, 10, fr.OriginalN)
	assert.Equal(t, 8, fr.CleanedN)
	assert.Len(t, fr.Records, 2)

	// The cleaned metric's statistics are recomputed over the survivors.
	ing := doc.Statistics["ingestion_time"]
	assert.Equal(t, 8, ing.N)
	assert.InDelta(t, 835.75, ing.Mean, 1e-9)
	assert.Len(t, ing.Values, 8)

	// The untouched metric keeps its original statistics.
	assert.Equal(t, 10, doc.Statistics["p50_latency_ms"].N)

	require.NotNil(t, doc.OutlierCleaning)
	assert.Equal(t, "iqr_3x", doc.OutlierCleaning.Method)
	assert.Equal(t, now.Format(time.RFC3339), doc.OutlierCleaning.CleanedAt)
	assert.Equal(t, []string{"ingestion_time"}, doc.OutlierCleaning.MetricsCleaned)
	assert.Equal(t, 2, doc.OutlierCleaning.TotalOutliers)
	assert.Nil(t, doc.OutlierCleaning.AggressivePass)
	assert.Nil(t, doc.OutlierCleaning.ColdStartPass)
}

func TestCleanDocumentNoOutliers(t *testing.T) {
	steady, err := sample.NewMetricStats([]float64{5.1, 5.0, 5.2, 5.1, 5.0})
	require.NoError(t, err)
	doc := &sample.AggregatedResults{
		Database:   "memory",
		Corpus:     "10k",
		NRuns:      5,
		Statistics: map[string]*sample.MetricStats{"p50_latency_ms": &steady},
	}

	fr := CleanDocument("b/aggregated_results.json", doc, outlier.DefaultConfig(), Options{Method: MethodIQR}, time.Now())

	assert.Equal(t, StatusNoOutliers, fr.Status)
	assert.Empty(t, fr.MetricsCleaned)
	assert.Equal(t, 5, fr.CleanedN)
	assert.Nil(t, doc.OutlierCleaning)
}

func TestCleanDocumentNoStatistics(t *testing.T) {
	doc := &sample.AggregatedResults{Database: "memory", NRuns: 5}

	fr := CleanDocument("c/aggregated_results.json", doc, outlier.DefaultConfig(), Options{Method: MethodIQR}, time.Now())

	assert.Equal(t, StatusNoStatistics, fr.Status)
	assert.Empty(t, fr.Records)
}

func TestCleanDocumentAggressivePassAudit(t *testing.T) {
	noisy, err := sample.NewMetricStats([]float64{95, 100, 100, 100, 105, 300, 10000})
	require.NoError(t, err)
	doc := &sample.AggregatedResults{
		Database:   "redis",
		Corpus:     "50k",
		NRuns:      7,
		Statistics: map[string]*sample.MetricStats{"ingestion_time": &noisy},
	}
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	fr := CleanDocument("d/aggregated_results.json", doc, outlier.DefaultConfig(), Options{Method: MethodIQR, TwoPass: true}, now)

	assert.Equal(t, StatusCleaned, fr.Status)
	assert.Equal(t, 2, fr.OutliersRemoved)
	assert.Equal(t, 5, fr.CleanedN)
	assert.Equal(t, 5, doc.Statistics["ingestion_time"].N)

	require.NotNil(t, doc.OutlierCleaning)
	require.NotNil(t, doc.OutlierCleaning.AggressivePass)
	assert.Equal(t, "iqr_2x", doc.OutlierCleaning.AggressivePass.Method)
	assert.Equal(t, 40.0, doc.OutlierCleaning.AggressivePass.CVThreshold)
	assert.Equal(t, []string{"ingestion_time"}, doc.OutlierCleaning.AggressivePass.MetricsCleaned)
	assert.Equal(t, 2, doc.OutlierCleaning.AggressivePass.TotalOutliers)
}

func TestCleanDocumentColdStartAudit(t *testing.T) {
	cold, err := sample.NewMetricStats([]float64{400, 380, 100, 100, 100, 100, 100, 100})
	require.NoError(t, err)
	doc := &sample.AggregatedResults{
		Database:   "pgvector",
		Corpus:     "10k",
		NRuns:      8,
		Statistics: map[string]*sample.MetricStats{"ingestion_time": &cold},
	}
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	fr := CleanDocument("e/aggregated_results.json", doc, outlier.DefaultConfig(), Options{Method: MethodIQR, ColdStart: true}, now)

	assert.Equal(t, StatusCleaned, fr.Status)
	assert.Equal(t, 6, fr.CleanedN)

	require.NotNil(t, doc.OutlierCleaning)
	require.NotNil(t, doc.OutlierCleaning.ColdStartPass)
	assert.Equal(t, "cold_start_detection", doc.OutlierCleaning.ColdStartPass.Method)
	assert.Equal(t, []string{"ingestion_time"}, doc.OutlierCleaning.ColdStartPass.MetricsCleaned)
	assert.Equal(t, 2, doc.OutlierCleaning.ColdStartPass.TotalOutliers)
}

func TestCleanDocumentIdempotent(t *testing.T) {
	doc := cleanTestDocument(t)
	now := time.Now().UTC()
	cfg := outlier.DefaultConfig()
	opts := Options{Method: MethodIQR}

	first := CleanDocument("f/aggregated_results.json", doc, cfg, opts, now)
	require.Equal(t, StatusCleaned, first.Status)

	second := CleanDocument("f/aggregated_results.json", doc, cfg, opts, now)
	assert.Equal(t, StatusNoOutliers, second.Status)
	assert.Zero(t, second.OutliersRemoved)
	assert.Equal(t, 8, doc.Statistics["ingestion_time"].N)
}
