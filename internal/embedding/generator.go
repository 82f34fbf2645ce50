package embedding

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
)

// Generator produces deterministic embeddings locally: the text is hashed
// into a seed and the vector drawn from a seeded normal distribution, then
// L2-normalized. Identical text always maps to the identical vector, so
// query results are stable across runs while the benchmark measures the
// database rather than an embedding model.
type Generator struct {
	dimension int
}

// NewGenerator creates a generator for the given vector dimension.
func NewGenerator(dimension int) (*Generator, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	return &Generator{dimension: dimension}, nil
}

// Dimension returns the vector dimension.
func (g *Generator) Dimension() int {
	return g.dimension
}

// GetEmbedding generates the embedding for the given text.
func (g *Generator) GetEmbedding(text string) ([]float32, error) {
	h := fnv.New64a()
	if _, err := h.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to hash text: %w", err)
	}

	rnd := rand.New(rand.NewSource(int64(h.Sum64())))
	vec := make([]float32, g.dimension)
	for i := range vec {
		vec[i] = float32(rnd.NormFloat64())
	}
	normalizeInPlace(vec)
	return vec, nil
}

// GetEmbeddings generates embeddings for multiple texts.
func (g *Generator) GetEmbeddings(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := g.GetEmbedding(text)
		if err != nil {
			return nil, fmt.Errorf("failed to get embedding for text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
