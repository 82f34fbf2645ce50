package corpus

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Document represents a loaded corpus document.
type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Chunk represents a chunk of a document, the unit that gets embedded and
// inserted into the benchmarked database.
type Chunk struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// LoadFromFile loads a single document from a file.
func LoadFromFile(filePath string) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("file %s contains invalid UTF-8", filePath)
	}

	hasher := md5.New()
	hasher.Write([]byte(filePath))
	hasher.Write(content)
	docID := fmt.Sprintf("%x", hasher.Sum(nil))

	return &Document{
		ID:      docID,
		Content: string(content),
		Metadata: map[string]interface{}{
			"file":     filePath,
			"filename": filepath.Base(filePath),
			"size":     len(content),
		},
	}, nil
}

// LoadDirectory loads every document with a matching extension from path.
// A single file path is accepted too.
func LoadDirectory(path string, extensions []string, recursive bool) ([]*Document, error) {
	files, err := listFiles(path, extensions, recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no corpus documents found under %s", path)
	}

	docs := make([]*Document, 0, len(files))
	for _, file := range files {
		doc, err := LoadFromFile(file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ChunkDocument splits a document into fixed-size chunks with overlap,
// breaking at word boundaries when possible.
func ChunkDocument(doc *Document, chunkSize, overlap int) []*Chunk {
	content := doc.Content
	if len(content) == 0 {
		return []*Chunk{}
	}

	var chunks []*Chunk
	start := 0
	chunkIndex := 0

	for start < len(content) {
		end := start + chunkSize
		if end > len(content) {
			end = len(content)
		}

		// Try to break at word boundaries
		if end < len(content) && content[end] != ' ' && content[end] != '\n' {
			for i := end - 1; i > start && i > end-50; i-- {
				if content[i] == ' ' || content[i] == '\n' {
					end = i
					break
				}
			}
		}

		chunkContent := strings.TrimSpace(content[start:end])
		if len(chunkContent) == 0 {
			start = end + 1
			continue
		}

		chunkMetadata := make(map[string]interface{})
		for k, v := range doc.Metadata {
			chunkMetadata[k] = v
		}
		chunkMetadata["chunk_index"] = chunkIndex
		chunkMetadata["parent_id"] = doc.ID

		chunks = append(chunks, &Chunk{
			ID:       fmt.Sprintf("%s_chunk_%d", doc.ID, chunkIndex),
			Content:  chunkContent,
			Metadata: chunkMetadata,
		})
		chunkIndex++

		nextStart := end - overlap
		if nextStart <= start {
			// Prevent infinite loop - if we can't advance, we're done
			break
		}
		start = nextStart
	}

	return chunks
}

// ChunkDocuments chunks a whole corpus.
func ChunkDocuments(docs []*Document, chunkSize, overlap int) []*Chunk {
	var chunks []*Chunk
	for _, doc := range docs {
		chunks = append(chunks, ChunkDocument(doc, chunkSize, overlap)...)
	}
	return chunks
}

func listFiles(path string, extensions []string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if hasValidExtension(path, extensions) {
			return []string{path}, nil
		}
		return nil, nil
	}

	var files []string
	if recursive {
		err = filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && hasValidExtension(filePath, extensions) {
				files = append(files, filePath)
			}
			return nil
		})
		return files, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			filePath := filepath.Join(path, entry.Name())
			if hasValidExtension(filePath, extensions) {
				files = append(files, filePath)
			}
		}
	}
	return files, nil
}

func hasValidExtension(filename string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, validExt := range extensions {
		if ext == validExt {
			return true
		}
	}
	return false
}
