package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/logger"
)

// defaultEmbedRetries bounds embedding attempts per upsert.
const defaultEmbedRetries = 3

// DocumentIndex owns all indexed documents. Writes are serialised per
// item ID; a document and its embedding are saved as one unit, so a
// concurrent reader sees either the prior version or the new one, never
// a half state.
type DocumentIndex struct {
	docs     driven.DocumentStore
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	locks    *keyedMutex

	embedRetries uint64

	versionMu sync.Mutex
	version   uint64
}

// NewDocumentIndex creates a document index. maxEmbedRetries bounds the
// embedding attempts per upsert; zero selects the default.
func NewDocumentIndex(
	docs driven.DocumentStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	maxEmbedRetries int,
) *DocumentIndex {
	retries := uint64(defaultEmbedRetries)
	if maxEmbedRetries > 0 {
		retries = uint64(maxEmbedRetries)
	}
	return &DocumentIndex{
		docs:         docs,
		vectors:      vectors,
		embedder:     embedder,
		locks:        newKeyedMutex(),
		embedRetries: retries,
	}
}

// Apply routes a change event to the matching index operation, carrying
// the originating source's priority for conflict resolution.
func (x *DocumentIndex) Apply(ctx context.Context, event domain.ChangeEvent, priority int) error {
	switch event.Kind {
	case domain.ChangeNew, domain.ChangeUpdated:
		_, err := x.Upsert(ctx, event, priority)
		return err
	case domain.ChangeRemoved:
		return x.Remove(ctx, event.ItemID)
	default:
		return fmt.Errorf("%w: change kind %d", domain.ErrInvalidInput, event.Kind)
	}
}

// Upsert indexes the event's content under its item ID and returns the new
// version. The embedding call is external and may fail; after bounded
// retries the document is saved with its previous embedding (marked stale)
// rather than dropped.
//
// Conflicts between sources claiming the same item are resolved by source
// priority, not arrival order. Within one source, an event older than the
// indexed version is discarded to preserve observed_at ordering.
func (x *DocumentIndex) Upsert(ctx context.Context, event domain.ChangeEvent, priority int) (uint64, error) {
	if x.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	unlock := x.locks.Lock(event.ItemID)
	defer unlock()

	existing, err := x.docs.Get(ctx, event.ItemID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("get document: %w", err)
	}

	if existing != nil {
		if existing.SourceID != event.SourceID && existing.SourcePriority > priority {
			logger.Debug("index: %s held by higher-priority source %s, ignoring write from %s",
				event.ItemID, existing.SourceID, event.SourceID)
			return existing.Version, nil
		}
		if existing.SourceID == event.SourceID && event.ObservedAt.Before(existing.ObservedAt) {
			logger.Debug("index: stale event for %s (observed %s < indexed %s)",
				event.ItemID, event.ObservedAt.Format(time.RFC3339), existing.ObservedAt.Format(time.RFC3339))
			return existing.Version, nil
		}
	}

	embedding, embedErr := x.embedWithRetry(ctx, event.Content)
	stale := false
	if embedErr != nil {
		if existing == nil || existing.Embedding == nil {
			// Nothing to fall back to: index the text anyway so the
			// document is not lost, just not semantically searchable yet.
			logger.Warn("index: embedding failed for new item %s, indexing without vector: %v", event.ItemID, embedErr)
			embedding = nil
		} else {
			logger.Warn("index: embedding failed for %s, keeping previous vector: %v", event.ItemID, embedErr)
			embedding = existing.Embedding
		}
		stale = true
	}

	doc := &domain.IndexedDocument{
		ItemID:         event.ItemID,
		SourceID:       event.SourceID,
		Title:          event.Title,
		Text:           event.Content,
		Embedding:      embedding,
		EmbeddingStale: stale,
		Version:        x.nextVersion(),
		SourcePriority: priority,
		ObservedAt:     event.ObservedAt,
		UpdatedAt:      time.Now(),
	}

	if err := x.docs.Save(ctx, doc); err != nil {
		return 0, fmt.Errorf("save document: %w", err)
	}

	if embedding != nil {
		if err := x.vectors.Add(ctx, doc.ItemID, embedding); err != nil {
			return 0, fmt.Errorf("add vector: %w", err)
		}
	}

	logger.Debug("index: upsert %s version %d (stale_embedding=%t)", doc.ItemID, doc.Version, stale)
	return doc.Version, nil
}

// Remove tombstones a document. The text is retained for audit; the item
// is excluded from all subsequent queries. Removing an unknown item is a
// no-op.
func (x *DocumentIndex) Remove(ctx context.Context, itemID string) error {
	unlock := x.locks.Lock(itemID)
	defer unlock()

	doc, err := x.docs.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get document: %w", err)
	}
	if doc.Tombstoned {
		return nil
	}

	doc.Tombstoned = true
	doc.Version = x.nextVersion()
	doc.UpdatedAt = time.Now()

	if err := x.docs.Save(ctx, doc); err != nil {
		return fmt.Errorf("save tombstone: %w", err)
	}
	if err := x.vectors.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}

	logger.Debug("index: tombstoned %s", itemID)
	return nil
}

// Query embeds the query text and returns the k nearest documents by
// cosine similarity. Tombstoned documents are excluded; ties break by
// most-recent version first. k is capped at domain.MaxQueryResults.
func (x *DocumentIndex) Query(ctx context.Context, text string, k int) ([]domain.QueryHit, error) {
	if x.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}
	if k > domain.MaxQueryResults {
		k = domain.MaxQueryResults
	}

	queryVec, err := x.embedWithRetry(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch to leave room for tombstone filtering.
	hits, err := x.vectors.Search(ctx, queryVec, k*2)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]domain.QueryHit, 0, len(hits))
	for _, hit := range hits {
		doc, err := x.docs.Get(ctx, hit.ItemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document: %w", err)
		}
		if doc.Tombstoned {
			continue
		}
		results = append(results, domain.QueryHit{
			ItemID:  doc.ItemID,
			Score:   hit.Similarity,
			Version: doc.Version,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Version > results[j].Version
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get retrieves an indexed document by item ID.
func (x *DocumentIndex) Get(ctx context.Context, itemID string) (*domain.IndexedDocument, error) {
	return x.docs.Get(ctx, itemID)
}

// embedWithRetry calls the embedding capability with exponential backoff,
// bounded by the configured attempt count.
func (x *DocumentIndex) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	operation := func() error {
		vec, err := x.embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		embedding = vec
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, x.embedRetries-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	return embedding, nil
}

// nextVersion returns the next monotonically increasing version.
func (x *DocumentIndex) nextVersion() uint64 {
	x.versionMu.Lock()
	defer x.versionMu.Unlock()
	x.version++
	return x.version
}
