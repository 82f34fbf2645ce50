package bench

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gonum/stat"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vectorbench/internal/corpus"
	"vectorbench/internal/embedding"
	"vectorbench/internal/sample"
)

// Standard per-run metric names, shared with the cleaning stage.
const (
	MetricIngestionTime    = "ingestion_time"
	MetricP50LatencyMs     = "p50_latency_ms"
	MetricP95LatencyMs     = "p95_latency_ms"
	MetricQueriesPerSecond = "queries_per_second"
)

// IngestionMetrics breaks one run's ingestion into its stages.
type IngestionMetrics struct {
	NumDocuments     int     `json:"num_documents"`
	NumChunks        int     `json:"num_chunks"`
	ChunkingTimeSec  float64 `json:"chunking_time_sec"`
	EmbeddingTimeSec float64 `json:"embedding_time_sec"`
	InsertionTimeSec float64 `json:"insertion_time_sec"`
	TotalTimeSec     float64 `json:"total_time_sec"`
}

// QueryMetrics summarizes one run's query phase.
type QueryMetrics struct {
	NumQueries       int     `json:"num_queries"`
	TopK             int     `json:"top_k"`
	MeanLatencyMs    float64 `json:"mean_latency_ms"`
	P50LatencyMs     float64 `json:"p50_latency_ms"`
	P95LatencyMs     float64 `json:"p95_latency_ms"`
	P99LatencyMs     float64 `json:"p99_latency_ms"`
	QueriesPerSecond float64 `json:"queries_per_second"`
}

// RunResult is the results.json document for a single benchmark run.
type RunResult struct {
	RunID            string           `json:"run_id"`
	Run              int              `json:"run"`
	Database         string           `json:"database"`
	Corpus           string           `json:"corpus"`
	Timestamp        string           `json:"timestamp"`
	Ingestion        IngestionMetrics `json:"ingestion"`
	Query            QueryMetrics     `json:"query"`
	IngestResources  *ResourceMetrics `json:"ingest_resources,omitempty"`
	QueryResources   *ResourceMetrics `json:"query_resources,omitempty"`
	EmbeddingDim     int              `json:"embedding_dim"`
	ChunkSize        int              `json:"chunk_size"`
	ChunkOverlapSize int              `json:"chunk_overlap"`
}

// SamplerConfig holds the workload shape for an experiment.
type SamplerConfig struct {
	Corpus           string
	TopK             int
	BatchSize        int
	ChunkSize        int
	ChunkOverlap     int
	WarmupQueries    int
	MonitorResources bool
}

// Sampler executes the full ingest+query workload N times against one
// runner and aggregates the per-run metrics into the document the cleaning
// stage consumes. Each run gets a fresh collection so runs stay
// independent.
type Sampler struct {
	runner   Runner
	embedder *embedding.Generator
	log      *zap.Logger
	cfg      SamplerConfig
}

// NewSampler creates a sampler for one runner and workload.
func NewSampler(runner Runner, embedder *embedding.Generator, log *zap.Logger, cfg SamplerConfig) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{runner: runner, embedder: embedder, log: log, cfg: cfg}
}

// RunOnce executes a single benchmark run: create collection, chunk, embed,
// insert, query, clean up.
func (s *Sampler) RunOnce(ctx context.Context, run int, docs []*corpus.Document, queries []string) (*RunResult, error) {
	result := &RunResult{
		RunID:            uuid.NewString(),
		Run:              run,
		Database:         s.runner.Name(),
		Corpus:           s.cfg.Corpus,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		EmbeddingDim:     s.embedder.Dimension(),
		ChunkSize:        s.cfg.ChunkSize,
		ChunkOverlapSize: s.cfg.ChunkOverlap,
	}

	if err := s.runner.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := s.runner.Disconnect(ctx); err != nil {
			s.log.Warn("disconnect failed", zap.String("database", result.Database), zap.Error(err))
		}
	}()

	if err := s.runner.CreateCollection(ctx, s.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	defer func() {
		if err := s.runner.Cleanup(ctx); err != nil {
			s.log.Warn("cleanup failed", zap.String("database", result.Database), zap.Error(err))
		}
	}()

	ingestion, err := s.ingest(ctx, docs, result)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	result.Ingestion = ingestion

	query, err := s.runQueries(ctx, queries, result)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	result.Query = query

	return result, nil
}

func (s *Sampler) ingest(ctx context.Context, docs []*corpus.Document, result *RunResult) (IngestionMetrics, error) {
	var monitor *ResourceMonitor
	if s.cfg.MonitorResources {
		monitor = NewResourceMonitor(0)
		monitor.Start()
	}

	chunkStart := time.Now()
	chunks := corpus.ChunkDocuments(docs, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	chunkingTime := time.Since(chunkStart)

	if len(chunks) == 0 {
		if monitor != nil {
			monitor.Stop()
		}
		return IngestionMetrics{}, fmt.Errorf("corpus produced no chunks")
	}

	embedStart := time.Now()
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := s.embedder.GetEmbeddings(texts)
	if err != nil {
		if monitor != nil {
			monitor.Stop()
		}
		return IngestionMetrics{}, err
	}
	embeddingTime := time.Since(embedStart)

	insertionTime, err := s.runner.InsertChunks(ctx, chunks, embeddings, s.cfg.BatchSize)
	if err != nil {
		if monitor != nil {
			monitor.Stop()
		}
		return IngestionMetrics{}, err
	}

	if monitor != nil {
		metrics := monitor.Stop()
		result.IngestResources = &metrics
	}

	return IngestionMetrics{
		NumDocuments:     len(docs),
		NumChunks:        len(chunks),
		ChunkingTimeSec:  chunkingTime.Seconds(),
		EmbeddingTimeSec: embeddingTime.Seconds(),
		InsertionTimeSec: insertionTime.Seconds(),
		TotalTimeSec:     chunkingTime.Seconds() + embeddingTime.Seconds() + insertionTime.Seconds(),
	}, nil
}

func (s *Sampler) runQueries(ctx context.Context, queries []string, result *RunResult) (QueryMetrics, error) {
	if len(queries) == 0 {
		return QueryMetrics{}, fmt.Errorf("no queries provided")
	}

	// Warm up untimed so connection and cache setup do not pollute the
	// measured latencies.
	for i := 0; i < s.cfg.WarmupQueries && i < len(queries); i++ {
		vec, err := s.embedder.GetEmbedding(queries[i])
		if err != nil {
			return QueryMetrics{}, err
		}
		if _, _, err := s.runner.Query(ctx, vec, s.cfg.TopK); err != nil {
			return QueryMetrics{}, fmt.Errorf("warmup query %d: %w", i, err)
		}
	}

	var monitor *ResourceMonitor
	if s.cfg.MonitorResources {
		monitor = NewResourceMonitor(0)
		monitor.Start()
	}

	latenciesMs := make([]float64, 0, len(queries))
	var totalQueryTime time.Duration
	for i, q := range queries {
		vec, err := s.embedder.GetEmbedding(q)
		if err != nil {
			if monitor != nil {
				monitor.Stop()
			}
			return QueryMetrics{}, err
		}
		_, took, err := s.runner.Query(ctx, vec, s.cfg.TopK)
		if err != nil {
			if monitor != nil {
				monitor.Stop()
			}
			return QueryMetrics{}, fmt.Errorf("query %d: %w", i, err)
		}
		latenciesMs = append(latenciesMs, float64(took)/float64(time.Millisecond))
		totalQueryTime += took
	}

	if monitor != nil {
		metrics := monitor.Stop()
		result.QueryResources = &metrics
	}

	return summarizeQueries(latenciesMs, totalQueryTime, s.cfg.TopK), nil
}

// summarizeQueries condenses per-query latencies into the run-level
// summary.
func summarizeQueries(latenciesMs []float64, total time.Duration, topK int) QueryMetrics {
	sorted := append([]float64(nil), latenciesMs...)
	sort.Float64s(sorted)

	qm := QueryMetrics{
		NumQueries:    len(latenciesMs),
		TopK:          topK,
		MeanLatencyMs: stat.Mean(sorted, nil),
		P50LatencyMs:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95LatencyMs:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99LatencyMs:  stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
	if total > 0 {
		qm.QueriesPerSecond = float64(len(latenciesMs)) / total.Seconds()
	}
	return qm
}

// RunN executes n independent runs and aggregates the successful ones. A
// failed run is logged and skipped; the experiment fails only when every
// run fails.
func (s *Sampler) RunN(ctx context.Context, n int, docs []*corpus.Document, queries []string) (*sample.AggregatedResults, []*RunResult, error) {
	results := make([]*RunResult, 0, n)
	for run := 1; run <= n; run++ {
		s.log.Info("starting run",
			zap.String("database", s.runner.Name()),
			zap.String("corpus", s.cfg.Corpus),
			zap.Int("run", run),
			zap.Int("total", n),
		)
		res, err := s.RunOnce(ctx, run, docs, queries)
		if err != nil {
			s.log.Error("run failed", zap.Int("run", run), zap.Error(err))
			continue
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		return nil, nil, fmt.Errorf("all %d runs failed for %s", n, s.runner.Name())
	}

	agg, err := Aggregate(results)
	if err != nil {
		return nil, results, err
	}
	return agg, results, nil
}

// Aggregate builds the aggregated_results.json document from per-run
// results.
func Aggregate(results []*RunResult) (*sample.AggregatedResults, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no run results to aggregate")
	}

	metrics := map[string][]float64{}
	for _, r := range results {
		metrics[MetricIngestionTime] = append(metrics[MetricIngestionTime], r.Ingestion.TotalTimeSec)
		metrics[MetricP50LatencyMs] = append(metrics[MetricP50LatencyMs], r.Query.P50LatencyMs)
		metrics[MetricP95LatencyMs] = append(metrics[MetricP95LatencyMs], r.Query.P95LatencyMs)
		metrics[MetricQueriesPerSecond] = append(metrics[MetricQueriesPerSecond], r.Query.QueriesPerSecond)
	}

	agg := &sample.AggregatedResults{
		Database:     results[0].Database,
		Corpus:       results[0].Corpus,
		NRuns:        len(results),
		AggregatedAt: time.Now().UTC().Format(time.RFC3339),
		Statistics:   make(map[string]*sample.MetricStats, len(metrics)),
	}
	for name, values := range metrics {
		ms, err := sample.NewMetricStats(values)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", name, err)
		}
		agg.Statistics[name] = &ms
	}
	return agg, nil
}
