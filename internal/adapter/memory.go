package adapter

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"vectorbench/internal/corpus"
)

// MemoryRunner benchmarks an in-process brute-force cosine store. It is the
// baseline target: no network, no index structure, exact search.
type MemoryRunner struct {
	mutex   sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryRunner creates the in-process baseline runner.
func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

// Name returns the database identifier.
func (m *MemoryRunner) Name() string { return "memory" }

// Connect is a no-op for the in-process store.
func (m *MemoryRunner) Connect(ctx context.Context) error { return nil }

// CreateCollection resets the store.
func (m *MemoryRunner) CreateCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.vectors = make(map[string][]float32)
	return nil
}

// InsertChunks stores all embeddings and returns the insertion time.
func (m *MemoryRunner) InsertChunks(ctx context.Context, chunks []*corpus.Chunk, embeddings [][]float32, batchSize int) (time.Duration, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	start := time.Now()
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i, chunk := range chunks {
		m.vectors[chunk.ID] = embeddings[i]
	}
	return time.Since(start), nil
}

// Query scans every stored vector and returns the topK most similar IDs.
func (m *MemoryRunner) Query(ctx context.Context, embedding []float32, topK int) ([]string, time.Duration, error) {
	start := time.Now()

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	type scored struct {
		id    string
		score float32
	}
	results := make([]scored, 0, len(m.vectors))
	for id, vec := range m.vectors {
		results = append(results, scored{id: id, score: cosineSimilarity(embedding, vec)})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids, time.Since(start), nil
}

// Cleanup drops the stored vectors.
func (m *MemoryRunner) Cleanup(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.vectors = nil
	return nil
}

// Disconnect is a no-op for the in-process store.
func (m *MemoryRunner) Disconnect(ctx context.Context) error { return nil }

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}
	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
