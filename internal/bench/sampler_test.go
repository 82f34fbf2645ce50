package bench

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorbench/internal/corpus"
	"vectorbench/internal/embedding"
)

// fakeRunner records the lifecycle calls the sampler makes and answers
// queries with canned IDs. failRuns makes Connect fail for the first n
// calls so the skip-and-continue path can be exercised.
type fakeRunner struct {
	connects  int
	creates   int
	inserts   int
	queries   int
	cleanups  int
	failRuns  int
	dimension int
}

func (f *fakeRunner) Name() string { return "fake" }

func (f *fakeRunner) Connect(ctx context.Context) error {
	f.connects++
	if f.connects <= f.failRuns {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func (f *fakeRunner) CreateCollection(ctx context.Context, dimension int) error {
	f.creates++
	f.dimension = dimension
	return nil
}

func (f *fakeRunner) InsertChunks(ctx context.Context, chunks []*corpus.Chunk, embeddings [][]float32, batchSize int) (time.Duration, error) {
	f.inserts += len(chunks)
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunk/embedding count mismatch")
	}
	return time.Millisecond, nil
}

func (f *fakeRunner) Query(ctx context.Context, embedding []float32, topK int) ([]string, time.Duration, error) {
	f.queries++
	return []string{"chunk_0"}, 500 * time.Microsecond, nil
}

func (f *fakeRunner) Cleanup(ctx context.Context) error {
	f.cleanups++
	return nil
}

func (f *fakeRunner) Disconnect(ctx context.Context) error { return nil }

func testDocs() []*corpus.Document {
	return []*corpus.Document{
		{ID: "doc1", Content: strings.Repeat("vector databases store embeddings ", 20)},
		{ID: "doc2", Content: strings.Repeat("benchmarks measure latency ", 20)},
	}
}

func testSampler(t *testing.T, runner Runner) *Sampler {
	t.Helper()
	embedder, err := embedding.NewGenerator(16)
	require.NoError(t, err)
	return NewSampler(runner, embedder, nil, SamplerConfig{
		Corpus:        "test",
		TopK:          3,
		BatchSize:     10,
		ChunkSize:     100,
		ChunkOverlap:  10,
		WarmupQueries: 1,
	})
}

func TestRunOnce(t *testing.T) {
	runner := &fakeRunner{}
	sampler := testSampler(t, runner)
	queries := []string{"what is a vector database", "how fast is ingestion"}

	res, err := sampler.RunOnce(context.Background(), 1, testDocs(), queries)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Run)
	assert.Equal(t, "fake", res.Database)
	assert.Equal(t, "test", res.Corpus)
	assert.Equal(t, 16, res.EmbeddingDim)
	assert.Equal(t, 16, runner.dimension)

	assert.Equal(t, 2, res.Ingestion.NumDocuments)
	assert.Greater(t, res.Ingestion.NumChunks, 0)
	assert.Greater(t, res.Ingestion.TotalTimeSec, 0.0)
	assert.Equal(t, res.Ingestion.NumChunks, runner.inserts)

	assert.Equal(t, 2, res.Query.NumQueries)
	assert.Equal(t, 3, res.Query.TopK)
	assert.Greater(t, res.Query.MeanLatencyMs, 0.0)
	assert.Greater(t, res.Query.QueriesPerSecond, 0.0)
	// One warmup plus two measured queries.
	assert.Equal(t, 3, runner.queries)

	assert.Equal(t, 1, runner.creates)
	assert.Equal(t, 1, runner.cleanups)
}

func TestRunOnceMonitorsResources(t *testing.T) {
	runner := &fakeRunner{}
	embedder, err := embedding.NewGenerator(16)
	require.NoError(t, err)
	sampler := NewSampler(runner, embedder, nil, SamplerConfig{
		Corpus:           "test",
		TopK:             3,
		ChunkSize:        100,
		ChunkOverlap:     10,
		MonitorResources: true,
	})

	res, err := sampler.RunOnce(context.Background(), 1, testDocs(), []string{"q"})
	require.NoError(t, err)
	require.NotNil(t, res.IngestResources)
	require.NotNil(t, res.QueryResources)
	assert.Greater(t, res.IngestResources.PeakHeapBytes, uint64(0))
}

func TestRunN(t *testing.T) {
	runner := &fakeRunner{}
	sampler := testSampler(t, runner)

	agg, results, err := sampler.RunN(context.Background(), 3, testDocs(), []string{"q1", "q2"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Run)
	assert.Equal(t, 3, results[2].Run)

	assert.Equal(t, "fake", agg.Database)
	assert.Equal(t, 3, agg.NRuns)
	require.NoError(t, agg.Validate())
	for _, metric := range []string{MetricIngestionTime, MetricP50LatencyMs, MetricP95LatencyMs, MetricQueriesPerSecond} {
		require.Contains(t, agg.Statistics, metric)
		assert.Len(t, agg.Statistics[metric].Values, 3)
	}
}

func TestRunNSkipsFailedRuns(t *testing.T) {
	runner := &fakeRunner{failRuns: 1}
	sampler := testSampler(t, runner)

	agg, results, err := sampler.RunN(context.Background(), 3, testDocs(), []string{"q"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, agg.NRuns)
}

func TestRunNAllFailed(t *testing.T) {
	runner := &fakeRunner{failRuns: 2}
	sampler := testSampler(t, runner)

	_, _, err := sampler.RunN(context.Background(), 2, testDocs(), []string{"q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 runs failed")
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil)
	assert.Error(t, err)
}

func TestSummarizeQueries(t *testing.T) {
	latencies := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	qm := summarizeQueries(latencies, 100*time.Millisecond, 3)

	assert.Equal(t, 10, qm.NumQueries)
	assert.Equal(t, 3, qm.TopK)
	assert.InDelta(t, 5.5, qm.MeanLatencyMs, 1e-9)
	assert.GreaterOrEqual(t, qm.P95LatencyMs, qm.P50LatencyMs)
	assert.GreaterOrEqual(t, qm.P99LatencyMs, qm.P95LatencyMs)
	assert.InDelta(t, 100.0, qm.QueriesPerSecond, 1e-9)
}

func TestResourceMonitor(t *testing.T) {
	monitor := NewResourceMonitor(time.Millisecond)
	monitor.Start()

	// Allocate something observable while the monitor runs.
	buf := make([]byte, 1<<20)
	for i := range buf {
		buf[i] = byte(i)
	}
	time.Sleep(5 * time.Millisecond)

	metrics := monitor.Stop()
	assert.Greater(t, metrics.PeakHeapBytes, uint64(0))
	assert.Greater(t, metrics.AvgHeapBytes, 0.0)
	assert.Greater(t, metrics.DurationSec, 0.0)
	_ = buf
}
