package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"vectorbench/internal/corpus"
)

// RedisRunner benchmarks Redis with the Search module (FLAT vector index
// over hashes, cosine metric). Index and search commands go through Do so
// the adapter stays independent of client helper coverage for FT.*.
type RedisRunner struct {
	addr   string
	index  string
	prefix string
	client *redis.Client
}

// NewRedisRunner creates a runner for the Redis endpoint at addr.
func NewRedisRunner(addr, index string) *RedisRunner {
	return &RedisRunner{addr: addr, index: index, prefix: index + ":"}
}

// Name returns the database identifier.
func (r *RedisRunner) Name() string { return "redis" }

// Connect opens the client and verifies the server is reachable.
func (r *RedisRunner) Connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{Addr: r.addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s: %w", r.addr, err)
	}
	r.client = client
	return nil
}

// CreateCollection recreates the vector index.
func (r *RedisRunner) CreateCollection(ctx context.Context, dimension int) error {
	// DD drops the indexed hashes too; ignore the error when the index
	// does not exist yet.
	_ = r.client.Do(ctx, "FT.DROPINDEX", r.index, "DD").Err()

	err := r.client.Do(ctx,
		"FT.CREATE", r.index, "ON", "HASH", "PREFIX", "1", r.prefix,
		"SCHEMA", "embedding", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dimension),
		"DISTANCE_METRIC", "COSINE",
	).Err()
	if err != nil {
		return fmt.Errorf("ft.create %s: %w", r.index, err)
	}
	return nil
}

// InsertChunks writes all chunks as hashes in pipelined batches and returns
// the wall-clock insertion time.
func (r *RedisRunner) InsertChunks(ctx context.Context, chunks []*corpus.Chunk, embeddings [][]float32, batchSize int) (time.Duration, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	start := time.Now()
	pipe := r.client.Pipeline()
	for i, chunk := range chunks {
		pipe.HSet(ctx, r.prefix+strconv.Itoa(i),
			"chunk_id", chunk.ID,
			"content", chunk.Content,
			"embedding", float32Blob(embeddings[i]),
		)
		if (i+1)%batchSize == 0 {
			if _, err := pipe.Exec(ctx); err != nil {
				return 0, fmt.Errorf("hset batch: %w", err)
			}
			pipe = r.client.Pipeline()
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("hset batch: %w", err)
	}
	return time.Since(start), nil
}

// Query runs a KNN search and returns the matched chunk IDs.
func (r *RedisRunner) Query(ctx context.Context, embedding []float32, topK int) ([]string, time.Duration, error) {
	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", topK)

	start := time.Now()
	res, err := r.client.Do(ctx,
		"FT.SEARCH", r.index, query,
		"PARAMS", "2", "vec", float32Blob(embedding),
		"SORTBY", "score",
		"RETURN", "1", "chunk_id",
		"DIALECT", "2",
	).Result()
	took := time.Since(start)
	if err != nil {
		return nil, 0, fmt.Errorf("ft.search: %w", err)
	}

	return parseSearchIDs(res), took, nil
}

// Cleanup drops the index along with the indexed hashes.
func (r *RedisRunner) Cleanup(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Do(ctx, "FT.DROPINDEX", r.index, "DD").Err(); err != nil {
		return fmt.Errorf("ft.dropindex: %w", err)
	}
	return nil
}

// Disconnect closes the client.
func (r *RedisRunner) Disconnect(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// float32Blob encodes an embedding as the little-endian byte blob the
// Search module expects for FLOAT32 vectors.
func float32Blob(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// parseSearchIDs extracts chunk_id fields from an FT.SEARCH RESP2 reply:
// [count, key, [field, value, ...], key, ...]. Unexpected shapes yield an
// empty result instead of an error; latency is measured regardless.
func parseSearchIDs(res interface{}) []string {
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 1 {
		return nil
	}

	var ids []string
	for i := 1; i < len(arr); i++ {
		fields, ok := arr[i].([]interface{})
		if !ok {
			continue
		}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			if name != "chunk_id" {
				continue
			}
			if value, ok := fields[j+1].(string); ok {
				ids = append(ids, value)
			}
		}
	}
	return ids
}
