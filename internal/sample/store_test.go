package sample

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCorpusDir(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)

	dir, err := store.CorpusDir("qdrant", "50k", 10)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "qdrant_scaling_n10", "corpus_50k"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveLoadAggregated(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), AggregatedFileName)

	require.NoError(t, SaveAggregated(path, doc))

	loaded, err := LoadAggregated(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Database, loaded.Database)
	assert.Equal(t, doc.Corpus, loaded.Corpus)
	assert.Equal(t, doc.NRuns, loaded.NRuns)
	require.Contains(t, loaded.Statistics, "ingestion_time")
	assert.Equal(t, doc.Statistics["ingestion_time"].Values, loaded.Statistics["ingestion_time"].Values)
	assert.InDelta(t, doc.Statistics["ingestion_time"].Mean, loaded.Statistics["ingestion_time"].Mean, 1e-12)
}

func TestLoadAggregatedMalformed(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0644))
	_, err := LoadAggregated(garbage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")

	// Parses but violates the document invariants.
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"database":"x","corpus":"y","n_runs":0,"statistics":{}}`), 0644))
	_, err = LoadAggregated(invalid)
	assert.Error(t, err)

	_, err = LoadAggregated(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFindAggregated(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	require.NoError(t, err)

	doc := testDocument(t)
	var want []string
	for _, cell := range []struct{ db, corpus string }{
		{"qdrant", "50k"},
		{"pgvector", "50k"},
		{"memory", "10k"},
	} {
		dir, err := store.CorpusDir(cell.db, cell.corpus, 10)
		require.NoError(t, err)
		path := filepath.Join(dir, AggregatedFileName)
		require.NoError(t, SaveAggregated(path, doc))
		want = append(want, path)
	}

	// A stray file must not be picked up.
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.json"), []byte("{}"), 0644))

	paths, err := FindAggregated(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, paths)
	assert.IsIncreasing(t, paths)
}
