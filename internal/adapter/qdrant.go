package adapter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	qpb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"vectorbench/internal/corpus"
)

// QdrantRunner benchmarks a Qdrant server over its gRPC API.
type QdrantRunner struct {
	addr       string
	collection string

	conn        *grpc.ClientConn
	collections qpb.CollectionsClient
	points      qpb.PointsClient
}

// NewQdrantRunner creates a runner for the Qdrant gRPC endpoint at addr.
func NewQdrantRunner(addr, collection string) *QdrantRunner {
	return &QdrantRunner{addr: addr, collection: collection}
}

// Name returns the database identifier.
func (q *QdrantRunner) Name() string { return "qdrant" }

// Connect dials the gRPC endpoint.
func (q *QdrantRunner) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, q.addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock())
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", q.addr, err)
	}
	q.conn = conn
	q.collections = qpb.NewCollectionsClient(conn)
	q.points = qpb.NewPointsClient(conn)
	return nil
}

// CreateCollection recreates the benchmark collection with cosine distance.
func (q *QdrantRunner) CreateCollection(ctx context.Context, dimension int) error {
	_, _ = q.collections.Delete(ctx, &qpb.DeleteCollection{CollectionName: q.collection})

	_, err := q.collections.Create(ctx, &qpb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qpb.VectorsConfig{
			Config: &qpb.VectorsConfig_Params{
				Params: &qpb.VectorParams{Size: uint64(dimension), Distance: qpb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %q @ %s: %w", q.collection, q.addr, err)
	}
	return nil
}

// InsertChunks upserts all chunks in batches and returns the wall-clock
// insertion time. Chunk IDs are kept in the payload; Qdrant point IDs are
// sequential numbers.
func (q *QdrantRunner) InsertChunks(ctx context.Context, chunks []*corpus.Chunk, embeddings [][]float32, batchSize int) (time.Duration, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	start := time.Now()
	buf := make([]*qpb.PointStruct, 0, batchSize)
	for i, chunk := range chunks {
		buf = append(buf, pointStruct(uint64(i), chunk, embeddings[i]))
		if len(buf) >= batchSize {
			if err := q.upsert(ctx, buf); err != nil {
				return 0, err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if err := q.upsert(ctx, buf); err != nil {
			return 0, err
		}
	}
	return time.Since(start), nil
}

// pointStruct builds one upsert point: numeric point ID, the embedding as
// a plain dense vector, and the chunk ID in the payload.
func pointStruct(id uint64, chunk *corpus.Chunk, vec []float32) *qpb.PointStruct {
	return &qpb.PointStruct{
		Id: &qpb.PointId{PointIdOptions: &qpb.PointId_Num{Num: id}},
		Vectors: &qpb.Vectors{
			VectorsOptions: &qpb.Vectors_Vector{
				Vector: &qpb.Vector{Data: vec},
			},
		},
		Payload: map[string]*qpb.Value{
			"chunk_id": {Kind: &qpb.Value_StringValue{StringValue: chunk.ID}},
		},
	}
}

func (q *QdrantRunner) upsert(ctx context.Context, points []*qpb.PointStruct) error {
	rpcCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if _, err := q.points.Upsert(rpcCtx, &qpb.UpsertPoints{CollectionName: q.collection, Points: points}); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// Query searches the collection and returns the matched point IDs.
func (q *QdrantRunner) Query(ctx context.Context, embedding []float32, topK int) ([]string, time.Duration, error) {
	req := &qpb.SearchPoints{
		CollectionName: q.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
	}

	start := time.Now()
	resp, err := q.points.Search(ctx, req)
	took := time.Since(start)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	ids := make([]string, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		if uid := p.GetId().GetUuid(); uid != "" {
			ids = append(ids, uid)
			continue
		}
		ids = append(ids, strconv.FormatUint(p.GetId().GetNum(), 10))
	}
	return ids, took, nil
}

// Cleanup drops the benchmark collection.
func (q *QdrantRunner) Cleanup(ctx context.Context) error {
	if q.collections == nil {
		return nil
	}
	if _, err := q.collections.Delete(ctx, &qpb.DeleteCollection{CollectionName: q.collection}); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// Disconnect closes the gRPC connection.
func (q *QdrantRunner) Disconnect(ctx context.Context) error {
	if q.conn == nil {
		return nil
	}
	err := q.conn.Close()
	q.conn = nil
	return err
}
