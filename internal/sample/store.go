package sample

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// AggregatedFileName is the per-corpus aggregate written after an N-run
// experiment.
const AggregatedFileName = "aggregated_results.json"

// Store reads and writes benchmark result documents under a results root,
// laid out results/<database>_scaling_n<N>/corpus_<label>/.
type Store struct {
	root string
}

// NewStore creates a result store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the results root directory.
func (s *Store) Root() string {
	return s.root
}

// CorpusDir returns (and creates) the directory for one experiment cell.
func (s *Store) CorpusDir(database, corpus string, nRuns int) (string, error) {
	dir := filepath.Join(s.root, fmt.Sprintf("%s_scaling_n%d", database, nRuns), "corpus_"+corpus)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create corpus directory: %w", err)
	}
	return dir, nil
}

// WriteJSON marshals v with indentation into path.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadAggregated reads and validates one aggregated_results.json file.
// Malformed documents are rejected with an explicit parse error instead of
// surfacing later as missing-field panics.
func LoadAggregated(path string) (*AggregatedResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc AggregatedResults
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &doc, nil
}

// SaveAggregated writes doc back to path.
func SaveAggregated(path string, doc *AggregatedResults) error {
	return WriteJSON(path, doc)
}

// FindAggregated walks root and returns every aggregated_results.json,
// sorted for deterministic processing order.
func FindAggregated(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == AggregatedFileName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
