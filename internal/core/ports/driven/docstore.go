package driven

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// DocumentStore persists indexed documents.
//
// A document is saved as a whole: readers never observe text from one
// version paired with an embedding from another.
type DocumentStore interface {
	// Save stores or replaces a document atomically.
	Save(ctx context.Context, doc *domain.IndexedDocument) error

	// Get retrieves a document by item ID, tombstoned or not.
	Get(ctx context.Context, itemID string) (*domain.IndexedDocument, error)

	// List returns all documents, optionally filtered by source ID.
	// Pass an empty sourceID for no filter.
	List(ctx context.Context, sourceID string) ([]domain.IndexedDocument, error)
}

// FingerprintStore holds the last-seen content fingerprint per
// (source, item) key, shared across adapter cycles.
type FingerprintStore interface {
	// Get returns the stored fingerprint and whether one exists.
	Get(ctx context.Context, sourceID, itemID string) (domain.Fingerprint, bool, error)

	// Put stores a fingerprint.
	Put(ctx context.Context, sourceID, itemID string, fp domain.Fingerprint) error

	// Delete removes a fingerprint.
	Delete(ctx context.Context, sourceID, itemID string) error

	// Keys returns the item IDs with stored fingerprints for a source.
	Keys(ctx context.Context, sourceID string) ([]string, error)
}
