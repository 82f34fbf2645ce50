package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "hello vector world")

	doc, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "hello vector world", doc.Content)
	assert.Equal(t, "doc.txt", doc.Metadata["filename"])
	assert.Equal(t, len("hello vector world"), doc.Metadata["size"])

	// Same path and content hash to the same ID.
	again, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
}

func TestLoadFromFileInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid UTF-8")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "document a")
	writeFile(t, dir, "b.md", "document b")
	writeFile(t, dir, "c.bin", "ignored")

	docs, err := LoadDirectory(dir, []string{".txt", ".md"}, false)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLoadDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeFile(t, dir, "top.txt", "top document")
	writeFile(t, sub, "deep.txt", "nested document")

	flat, err := LoadDirectory(dir, []string{".txt"}, false)
	require.NoError(t, err)
	assert.Len(t, flat, 1)

	recursive, err := LoadDirectory(dir, []string{".txt"}, true)
	require.NoError(t, err)
	assert.Len(t, recursive, 2)
}

func TestLoadDirectoryEmpty(t *testing.T) {
	_, err := LoadDirectory(t.TempDir(), []string{".txt"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no corpus documents")
}

func TestChunkDocument(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	doc := &Document{
		ID:       "doc1",
		Content:  strings.Join(words, " "),
		Metadata: map[string]interface{}{"filename": "doc1.txt"},
	}

	chunks := ChunkDocument(doc, 100, 20)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.NotEmpty(t, chunk.Content)
		assert.LessOrEqual(t, len(chunk.Content), 100)
		assert.Equal(t, "doc1", chunk.Metadata["parent_id"])
		assert.Equal(t, i, chunk.Metadata["chunk_index"])
		assert.Equal(t, "doc1.txt", chunk.Metadata["filename"])
	}
	assert.Equal(t, "doc1_chunk_0", chunks[0].ID)
}

func TestChunkDocumentShort(t *testing.T) {
	doc := &Document{ID: "short", Content: "tiny"}
	chunks := ChunkDocument(doc, 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Content)
}

func TestChunkDocumentEmpty(t *testing.T) {
	chunks := ChunkDocument(&Document{ID: "empty"}, 100, 20)
	assert.Empty(t, chunks)
}

func TestChunkDocuments(t *testing.T) {
	docs := []*Document{
		{ID: "one", Content: strings.Repeat("alpha beta ", 30)},
		{ID: "two", Content: strings.Repeat("gamma delta ", 30)},
	}

	chunks := ChunkDocuments(docs, 100, 10)
	require.NotEmpty(t, chunks)

	parents := map[string]bool{}
	for _, chunk := range chunks {
		parents[chunk.Metadata["parent_id"].(string)] = true
	}
	assert.True(t, parents["one"])
	assert.True(t, parents["two"])
}
