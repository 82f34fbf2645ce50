package bench

import (
	"context"
	"time"

	"vectorbench/internal/corpus"
)

// Runner is the per-database benchmark surface. Each implementation is a
// thin client over one database's own SDK; the harness only measures
// wall-clock time around these calls. Implementations report insertion and
// query durations themselves so connection setup is never counted as
// workload time.
type Runner interface {
	// Name returns the database identifier used in result paths.
	Name() string

	// Connect opens the client connection.
	Connect(ctx context.Context) error

	// CreateCollection creates (or recreates) the target collection for
	// vectors of the given dimension.
	CreateCollection(ctx context.Context, dimension int) error

	// InsertChunks inserts chunks with their embeddings in batches and
	// returns the insertion wall-clock time.
	InsertChunks(ctx context.Context, chunks []*corpus.Chunk, embeddings [][]float32, batchSize int) (time.Duration, error)

	// Query searches for the topK nearest chunks and returns their IDs and
	// the query wall-clock time.
	Query(ctx context.Context, embedding []float32, topK int) ([]string, time.Duration, error)

	// Cleanup drops the collection and any per-run state.
	Cleanup(ctx context.Context) error

	// Disconnect closes the client connection.
	Disconnect(ctx context.Context) error
}
