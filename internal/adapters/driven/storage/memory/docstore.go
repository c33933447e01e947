// Package memory provides in-memory implementations of the storage ports.
// Suitable for tests and single-run usage; contents do not survive a
// restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is a thread-safe in-memory document store.
// Documents are deep-copied on the way in and out so callers can never
// mutate stored state through a shared pointer.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.IndexedDocument
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.IndexedDocument)}
}

// Save stores or replaces a document atomically.
func (s *DocumentStore) Save(_ context.Context, doc *domain.IndexedDocument) error {
	if doc == nil || doc.ItemID == "" {
		return fmt.Errorf("%w: document requires an item ID", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ItemID] = copyDocument(doc)
	return nil
}

// Get retrieves a document by item ID.
func (s *DocumentStore) Get(_ context.Context, itemID string) (*domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[itemID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", itemID, domain.ErrNotFound)
	}
	out := copyDocument(&doc)
	return &out, nil
}

// List returns all documents, optionally filtered by source ID.
func (s *DocumentStore) List(_ context.Context, sourceID string) ([]domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.IndexedDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		if sourceID != "" && doc.SourceID != sourceID {
			continue
		}
		out = append(out, copyDocument(&doc))
	}
	return out, nil
}

func copyDocument(doc *domain.IndexedDocument) domain.IndexedDocument {
	out := *doc
	if doc.Embedding != nil {
		out.Embedding = make([]float32, len(doc.Embedding))
		copy(out.Embedding, doc.Embedding)
	}
	if doc.Tags != nil {
		out.Tags = make(map[string]string, len(doc.Tags))
		for k, v := range doc.Tags {
			out.Tags[k] = v
		}
	}
	return out
}
