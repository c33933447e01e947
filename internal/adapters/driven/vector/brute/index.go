// Package brute implements the vector index port with exhaustive cosine
// similarity scan. Exact results, O(n) per query; fine for the corpus
// sizes a single monitor run handles.
package brute

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

// Index is a thread-safe brute-force vector index.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewIndex creates an empty brute-force index.
func NewIndex() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

// Add inserts or replaces the vector for the given item ID.
func (x *Index) Add(_ context.Context, itemID string, embedding []float32) error {
	if itemID == "" {
		return fmt.Errorf("%w: item ID required", domain.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, itemID)
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	x.mu.Lock()
	x.vectors[itemID] = stored
	x.mu.Unlock()
	return nil
}

// Delete removes a vector. Deleting an absent item is a no-op.
func (x *Index) Delete(_ context.Context, itemID string) error {
	x.mu.Lock()
	delete(x.vectors, itemID)
	x.mu.Unlock()
	return nil
}

// Search scans all vectors and returns the k most similar by cosine
// similarity, highest first. Vectors of mismatched dimensionality are
// skipped.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}

	x.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(x.vectors))
	for itemID, vec := range x.vectors {
		if len(vec) != len(query) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ItemID:     itemID,
			Similarity: cosineSimilarity(query, vec),
		})
	}
	x.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases resources. No-op for the in-memory index.
func (x *Index) Close() error {
	return nil
}

// cosineSimilarity returns the cosine of the angle between two vectors of
// equal length, mapped into [0, 1]. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
