package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"vectorbench/internal/adapter"
	"vectorbench/internal/bench"
	"vectorbench/internal/corpus"
	"vectorbench/internal/embedding"
	"vectorbench/internal/sample"
)

var runCmd = &cobra.Command{
	Use:   "run [corpus-dir]",
	Short: "Run an N-run benchmark for one database and corpus",
	Long: `Run the full ingest+query workload N times against one database and
aggregate the per-run metrics.

Each run gets a fresh collection: documents are chunked, embedded and
inserted, then the query set is executed and latencies recorded. Per-run
results land in run_XX/results.json and the aggregate in
aggregated_results.json, both under
<results-dir>/<database>_scaling_n<N>/corpus_<label>/.

Examples:
  vectorbench run ./Data/test_corpus --database memory --runs 10
  vectorbench run ./corpus_50k --database qdrant --label 50k --runs 10`,
	Args: cobra.ExactArgs(1),
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("database", "d", "memory", fmt.Sprintf("database to benchmark %v", adapter.Names()))
	runCmd.Flags().IntP("runs", "n", 10, "Number of independent benchmark runs")
	runCmd.Flags().String("label", "baseline", "Corpus size label used in the results path")
	runCmd.Flags().Int("dimension", 384, "Embedding dimension")
	runCmd.Flags().IntP("top-k", "k", 3, "Number of results per query")
	runCmd.Flags().IntP("chunk-size", "c", 500, "Maximum chunk size for document splitting")
	runCmd.Flags().IntP("chunk-overlap", "o", 50, "Overlap between chunks when splitting documents")
	runCmd.Flags().Int("batch-size", 100, "Insertion batch size")
	runCmd.Flags().String("queries", "", "Optional file with one query per line")
	runCmd.Flags().Int("num-queries", 20, "Number of queries derived from the corpus when no query file is given")
	runCmd.Flags().Int("warmup-queries", 2, "Untimed warm-up queries before the measured query phase")
	runCmd.Flags().Bool("monitor-resources", true, "Sample harness resource usage during each phase")
	runCmd.Flags().BoolP("recursive", "r", false, "Recursively load corpus directories")
	runCmd.Flags().StringSliceP("extensions", "e", []string{".txt", ".md", ".xml"}, "File extensions to load from the corpus")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	corpusPath := args[0]
	database, _ := cmd.Flags().GetString("database")
	runs, _ := cmd.Flags().GetInt("runs")
	label, _ := cmd.Flags().GetString("label")
	dimension, _ := cmd.Flags().GetInt("dimension")
	topK, _ := cmd.Flags().GetInt("top-k")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	queriesFile, _ := cmd.Flags().GetString("queries")
	numQueries, _ := cmd.Flags().GetInt("num-queries")
	warmupQueries, _ := cmd.Flags().GetInt("warmup-queries")
	monitorResources, _ := cmd.Flags().GetBool("monitor-resources")
	recursive, _ := cmd.Flags().GetBool("recursive")
	extensions, _ := cmd.Flags().GetStringSlice("extensions")

	if runs < 1 {
		return fmt.Errorf("invalid --runs %d", runs)
	}
	if queriesFile == "" && numQueries < 1 {
		return fmt.Errorf("invalid --num-queries %d", numQueries)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	runner, err := adapter.New(database, adapter.Config{
		QdrantAddr:  viper.GetString("qdrant_addr"),
		PostgresDSN: viper.GetString("pgvector_dsn"),
		RedisAddr:   viper.GetString("redis_addr"),
	})
	if err != nil {
		return err
	}

	embedder, err := embedding.NewGenerator(dimension)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	fmt.Printf("📚 Loading corpus from %s...\n", corpusPath)
	docs, err := corpus.LoadDirectory(corpusPath, extensions, recursive)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	fmt.Printf("✅ Loaded %d documents\n", len(docs))

	queries, err := loadQueries(queriesFile, docs, chunkSize, chunkOverlap, numQueries)
	if err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	fmt.Printf("✅ Prepared %d queries\n", len(queries))

	store, err := sample.NewStore(viper.GetString("results_dir"))
	if err != nil {
		return err
	}
	outDir, err := store.CorpusDir(database, label, runs)
	if err != nil {
		return err
	}

	sampler := bench.NewSampler(runner, embedder, logger, bench.SamplerConfig{
		Corpus:           label,
		TopK:             topK,
		BatchSize:        batchSize,
		ChunkSize:        chunkSize,
		ChunkOverlap:     chunkOverlap,
		WarmupQueries:    warmupQueries,
		MonitorResources: monitorResources,
	})

	fmt.Printf("\n🚀 Benchmarking %s (corpus %s, N=%d)\n\n", database, label, runs)
	agg, results, err := sampler.RunN(cmd.Context(), runs, docs, queries)
	if err != nil {
		return err
	}

	for _, res := range results {
		runDir := filepath.Join(outDir, fmt.Sprintf("run_%02d", res.Run))
		if err := os.MkdirAll(runDir, 0755); err != nil {
			return fmt.Errorf("failed to create run directory: %w", err)
		}
		if err := sample.WriteJSON(filepath.Join(runDir, "results.json"), res); err != nil {
			return err
		}
	}

	aggPath := filepath.Join(outDir, sample.AggregatedFileName)
	if err := sample.SaveAggregated(aggPath, agg); err != nil {
		return err
	}

	fmt.Printf("\nBenchmark complete: %d/%d successful runs\n", len(results), runs)
	for _, metric := range []string{bench.MetricIngestionTime, bench.MetricP50LatencyMs, bench.MetricP95LatencyMs, bench.MetricQueriesPerSecond} {
		if ms, ok := agg.Statistics[metric]; ok {
			fmt.Printf("  %-20s mean=%.3f ± %.3f (CV %.1f%%)\n", metric, ms.Mean, ms.Std, ms.CVPercent)
		}
	}
	fmt.Printf("\nResults saved to: %s\n", aggPath)

	return nil
}

// loadQueries reads queries from a file, or derives them from corpus chunk
// contents so the workload always has a deterministic query set.
func loadQueries(path string, docs []*corpus.Document, chunkSize, chunkOverlap, numQueries int) ([]string, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var queries []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				queries = append(queries, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		if len(queries) == 0 {
			return nil, fmt.Errorf("query file %s is empty", path)
		}
		return queries, nil
	}

	if numQueries < 1 {
		return nil, fmt.Errorf("invalid query count %d", numQueries)
	}
	chunks := corpus.ChunkDocuments(docs, chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus produced no chunks to derive queries from")
	}
	if numQueries > len(chunks) {
		numQueries = len(chunks)
	}

	// Spread queries evenly across the corpus instead of taking the head.
	queries := make([]string, 0, numQueries)
	step := len(chunks) / numQueries
	if step == 0 {
		step = 1
	}
	for i := 0; i < len(chunks) && len(queries) < numQueries; i += step {
		queries = append(queries, chunks[i].Content)
	}
	return queries, nil
}
