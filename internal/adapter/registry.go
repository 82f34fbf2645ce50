package adapter

import (
	"fmt"

	"vectorbench/internal/bench"
)

// Config carries the connection settings for every supported backend.
type Config struct {
	QdrantAddr  string
	PostgresDSN string
	RedisAddr   string
	// Collection names the per-run collection/table/index.
	Collection string
}

// Names lists the supported database identifiers.
func Names() []string {
	return []string{"memory", "qdrant", "pgvector", "redis"}
}

// New constructs the runner for the named database.
func New(name string, cfg Config) (bench.Runner, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = "vectorbench"
	}

	switch name {
	case "memory":
		return NewMemoryRunner(), nil
	case "qdrant":
		return NewQdrantRunner(cfg.QdrantAddr, collection), nil
	case "pgvector":
		return NewPGVectorRunner(cfg.PostgresDSN, collection), nil
	case "redis":
		return NewRedisRunner(cfg.RedisAddr, collection), nil
	default:
		return nil, fmt.Errorf("unknown database %q (supported: %v)", name, Names())
	}
}
