package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helical-labs/medwatch/internal/adapters/driven/storage/memory"
	"github.com/helical-labs/medwatch/internal/adapters/driven/vector/brute"
	"github.com/helical-labs/medwatch/internal/core/domain"
)

func newTestIndex(embedder *fakeEmbedder) *DocumentIndex {
	return NewDocumentIndex(memory.NewDocumentStore(), brute.NewIndex(), embedder, 3)
}

func changeOf(kind domain.ChangeKind, itemID, content string) domain.ChangeEvent {
	return domain.ChangeEvent{
		ItemID:     itemID,
		SourceID:   "src",
		Kind:       kind,
		Title:      "Title of " + itemID,
		Content:    content,
		ObservedAt: time.Now(),
	}
}

func TestIndexUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("versions increase monotonically across writes", func(t *testing.T) {
		index := newTestIndex(newFakeEmbedder(nil))

		v1, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-1", "first"), 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), v1)

		v2, err := index.Upsert(ctx, changeOf(domain.ChangeUpdated, "doc-1", "second"), 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v2)

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "second", doc.Text)
		assert.Equal(t, uint64(2), doc.Version)
		assert.False(t, doc.EmbeddingStale)
	})

	t.Run("embedding failure within the retry budget still succeeds", func(t *testing.T) {
		embedder := newFakeEmbedder(nil)
		embedder.failures = 2
		index := newTestIndex(embedder)

		_, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-1", "text"), 0)
		require.NoError(t, err)
		assert.Equal(t, 3, embedder.callCount())

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.False(t, doc.EmbeddingStale)
		assert.NotNil(t, doc.Embedding)
	})

	t.Run("exhausted embedding retries keep the previous vector marked stale", func(t *testing.T) {
		embedder := newFakeEmbedder(map[string][]float32{"first": {1, 0, 0}})
		index := newTestIndex(embedder)

		_, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-1", "first"), 0)
		require.NoError(t, err)

		embedder.failures = 10
		v2, err := index.Upsert(ctx, changeOf(domain.ChangeUpdated, "doc-1", "second"), 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v2)

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "second", doc.Text, "text must advance even when embedding fails")
		assert.Equal(t, []float32{1, 0, 0}, doc.Embedding, "previous vector is retained")
		assert.True(t, doc.EmbeddingStale)
	})

	t.Run("new document with failing embedder is indexed without a vector", func(t *testing.T) {
		embedder := newFakeEmbedder(nil)
		embedder.failures = 10
		index := newTestIndex(embedder)

		_, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-1", "text"), 0)
		require.NoError(t, err)

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Nil(t, doc.Embedding)
		assert.True(t, doc.EmbeddingStale)
	})

	t.Run("lower-priority source cannot overwrite a higher-priority claim", func(t *testing.T) {
		index := newTestIndex(newFakeEmbedder(nil))

		event := changeOf(domain.ChangeNew, "doc-1", "authoritative")
		event.SourceID = "fda"
		v1, err := index.Upsert(ctx, event, 10)
		require.NoError(t, err)

		rival := changeOf(domain.ChangeUpdated, "doc-1", "mirror copy")
		rival.SourceID = "mirror"
		v2, err := index.Upsert(ctx, rival, 1)
		require.NoError(t, err)
		assert.Equal(t, v1, v2, "rejected write reports the standing version")

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "authoritative", doc.Text)
		assert.Equal(t, "fda", doc.SourceID)
	})

	t.Run("event observed before the indexed version is discarded", func(t *testing.T) {
		index := newTestIndex(newFakeEmbedder(nil))

		current := changeOf(domain.ChangeNew, "doc-1", "current")
		_, err := index.Upsert(ctx, current, 0)
		require.NoError(t, err)

		stale := changeOf(domain.ChangeUpdated, "doc-1", "stale")
		stale.ObservedAt = current.ObservedAt.Add(-time.Hour)
		_, err = index.Upsert(ctx, stale, 0)
		require.NoError(t, err)

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "current", doc.Text)
	})
}

func TestIndexRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("tombstoned documents keep their text but leave query results", func(t *testing.T) {
		embedder := newFakeEmbedder(map[string][]float32{
			"warfarin dosing": {1, 0, 0},
			"query":           {1, 0, 0},
		})
		index := newTestIndex(embedder)

		_, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-1", "warfarin dosing"), 0)
		require.NoError(t, err)

		hits, err := index.Query(ctx, "query", 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)

		require.NoError(t, index.Remove(ctx, "doc-1"))

		hits, err = index.Query(ctx, "query", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)

		doc, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.True(t, doc.Tombstoned)
		assert.Equal(t, "warfarin dosing", doc.Text)
		assert.Equal(t, uint64(2), doc.Version, "tombstoning bumps the version")
	})

	t.Run("removing an unknown item is a no-op", func(t *testing.T) {
		index := newTestIndex(newFakeEmbedder(nil))
		assert.NoError(t, index.Remove(ctx, "never-seen"))
	})

	t.Run("removing twice is idempotent", func(t *testing.T) {
		index := newTestIndex(newFakeEmbedder(nil))
		_, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-1", "text"), 0)
		require.NoError(t, err)

		require.NoError(t, index.Remove(ctx, "doc-1"))
		before, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)

		require.NoError(t, index.Remove(ctx, "doc-1"))
		after, err := index.Get(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
	})
}

func TestIndexQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nearest documents highest score first", func(t *testing.T) {
		embedder := newFakeEmbedder(map[string][]float32{
			"anticoagulant guidance": {1, 0, 0},
			"antibiotic guidance":    {0, 1, 0},
			"blood thinners":         {0.9, 0.1, 0},
		})
		index := newTestIndex(embedder)

		_, err := index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-coag", "anticoagulant guidance"), 0)
		require.NoError(t, err)
		_, err = index.Upsert(ctx, changeOf(domain.ChangeNew, "doc-bio", "antibiotic guidance"), 0)
		require.NoError(t, err)

		hits, err := index.Query(ctx, "blood thinners", 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "doc-coag", hits[0].ItemID)
	})

	t.Run("rejects non-positive k", func(t *testing.T) {
		index := newTestIndex(newFakeEmbedder(nil))
		_, err := index.Query(ctx, "anything", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("query against an unreachable embedder fails cleanly", func(t *testing.T) {
		embedder := newFakeEmbedder(nil)
		embedder.failures = 10
		index := newTestIndex(embedder)

		_, err := index.Query(ctx, "anything", 5)
		assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	})
}
