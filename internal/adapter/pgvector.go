package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vectorbench/internal/corpus"
)

// PGVectorRunner benchmarks PostgreSQL with the pgvector extension.
type PGVectorRunner struct {
	dsn   string
	table string
	pool  *pgxpool.Pool
}

// NewPGVectorRunner creates a runner for the given PostgreSQL DSN.
func NewPGVectorRunner(dsn, table string) *PGVectorRunner {
	return &PGVectorRunner{dsn: dsn, table: table}
}

// Name returns the database identifier.
func (p *PGVectorRunner) Name() string { return "pgvector" }

// Connect opens the connection pool.
func (p *PGVectorRunner) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pgx ping: %w", err)
	}
	p.pool = pool
	return nil
}

// CreateCollection recreates the benchmark table with a vector column.
func (p *PGVectorRunner) CreateCollection(ctx context.Context, dimension int) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	if _, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+p.table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (id TEXT PRIMARY KEY, content TEXT, embedding vector(%d))", p.table, dimension)
	if _, err := p.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// InsertChunks inserts all chunks in batches and returns the wall-clock
// insertion time.
func (p *PGVectorRunner) InsertChunks(ctx context.Context, chunks []*corpus.Chunk, embeddings [][]float32, batchSize int) (time.Duration, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	stmt := fmt.Sprintf("INSERT INTO %s (id, content, embedding) VALUES ($1, $2, $3::vector)", p.table)

	start := time.Now()
	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(stmt, chunk.ID, chunk.Content, vectorLiteral(embeddings[i]))
		if batch.Len() >= batchSize {
			if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
				return 0, fmt.Errorf("insert batch: %w", err)
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("insert batch: %w", err)
		}
	}
	return time.Since(start), nil
}

// Query runs a cosine-distance nearest-neighbor query and returns the
// matched chunk IDs.
func (p *PGVectorRunner) Query(ctx context.Context, embedding []float32, topK int) ([]string, time.Duration, error) {
	stmt := fmt.Sprintf("SELECT id FROM %s ORDER BY embedding <=> $1::vector LIMIT $2", p.table)

	start := time.Now()
	rows, err := p.pool.Query(ctx, stmt, vectorLiteral(embedding), topK)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	took := time.Since(start)
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}
	return ids, took, nil
}

// Cleanup drops the benchmark table.
func (p *PGVectorRunner) Cleanup(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	if _, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+p.table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// Disconnect closes the connection pool.
func (p *PGVectorRunner) Disconnect(ctx context.Context) error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// vectorLiteral renders an embedding as a pgvector text literal.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
