// Package index implements the vector index layer: an exact
// brute-force index and an approximate HNSW graph index, both behind
// a shared Index interface.
package index

import (
	"fmt"

	"github.com/diffsec/vectordb/internal/distance"
)

// DimensionError reports a vector whose length does not match an
// index's configured dimension.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// SearchResult holds the labels and scores of a search, sorted by
// descending score.
type SearchResult struct {
	Labels []uint64
	Scores []float32
}

// Len reports the number of hits.
func (r SearchResult) Len() int { return len(r.Labels) }

// EmptySearchResult is the canonical zero-hit result.
func EmptySearchResult() SearchResult {
	return SearchResult{}
}

// Index is the contract shared by FlatIndex and HnswIndex.
type Index interface {
	Insert(label uint64, vector []float32) error
	InsertBatch(labels []uint64, vectors [][]float32) error
	Delete(label uint64) error
	Search(query []float32, topK int) (SearchResult, error)
	Len() int
	Dimension() int
	Metric() distance.Metric
	Save(dir string) error
	Load(dir string) error
	NeedsRebuild() bool
}

// insertBatch is the default InsertBatch behavior shared by both
// implementations: sequential Insert calls.
func insertBatch(idx Index, labels []uint64, vectors [][]float32) error {
	for i, label := range labels {
		if err := idx.Insert(label, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}
