package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helical-labs/medwatch/internal/adapters/driven/storage/memory"
	"github.com/helical-labs/medwatch/internal/adapters/driven/vector/brute"
	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

// fakeAdapter serves snapshots from a mutable in-memory set.
type fakeAdapter struct {
	sourceID string
	caps     driven.AdapterCapabilities

	mu    sync.Mutex
	items map[string]string
	err   error
	wake  chan struct{}
}

func newFakeAdapter(sourceID string, enumerates bool) *fakeAdapter {
	return &fakeAdapter{
		sourceID: sourceID,
		caps:     driven.AdapterCapabilities{Enumerates: enumerates, SupportsWatch: true},
		items:    make(map[string]string),
		wake:     make(chan struct{}, 1),
	}
}

func (f *fakeAdapter) set(itemID, content string) {
	f.mu.Lock()
	f.items[itemID] = content
	f.mu.Unlock()
}

func (f *fakeAdapter) remove(itemID string) {
	f.mu.Lock()
	delete(f.items, itemID)
	f.mu.Unlock()
}

func (f *fakeAdapter) Kind() string                             { return "fake" }
func (f *fakeAdapter) SourceID() string                         { return f.sourceID }
func (f *fakeAdapter) Capabilities() driven.AdapterCapabilities { return f.caps }

func (f *fakeAdapter) Poll(context.Context) ([]domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	snaps := make([]domain.Snapshot, 0, len(f.items))
	for itemID, content := range f.items {
		snaps = append(snaps, domain.Snapshot{
			SourceID:  f.sourceID,
			ItemID:    itemID,
			Title:     itemID,
			Content:   content,
			FetchedAt: time.Now(),
		})
	}
	return snaps, nil
}

func (f *fakeAdapter) Watch(context.Context) (<-chan struct{}, error) {
	return f.wake, nil
}

func (f *fakeAdapter) Close() error { return nil }

func (f *fakeAdapter) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func startPipeline(t *testing.T, p *IngestPipeline) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(context.Background())
	}()
	t.Cleanup(func() {
		require.NoError(t, p.Stop())
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("pipeline did not stop")
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPipeline(t *testing.T) {
	newParts := func() (*DeltaDetector, *DocumentIndex) {
		detector := NewDeltaDetector(memory.NewFingerprintStore())
		index := NewDocumentIndex(memory.NewDocumentStore(), brute.NewIndex(), newFakeEmbedder(nil), 1)
		return detector, index
	}

	t.Run("polled content flows into the index", func(t *testing.T) {
		detector, index := newParts()
		adapter := newFakeAdapter("src", true)
		adapter.set("doc-1", "warfarin guidance")

		pipeline := NewIngestPipeline(detector, index, nil)
		source := domain.Source{ID: "src", Kind: "fake", PollInterval: domain.MinPollInterval}
		require.NoError(t, pipeline.Bind(source, adapter))
		startPipeline(t, pipeline)

		waitFor(t, func() bool {
			doc, err := index.Get(context.Background(), "doc-1")
			return err == nil && doc.Text == "warfarin guidance"
		})
	})

	t.Run("watch wakeups pull changes in ahead of the interval", func(t *testing.T) {
		detector, index := newParts()
		adapter := newFakeAdapter("src", true)
		adapter.set("doc-1", "v1")

		pipeline := NewIngestPipeline(detector, index, nil)
		// Long interval so only wakeups can deliver the update in time.
		source := domain.Source{ID: "src", Kind: "fake", PollInterval: time.Hour}
		require.NoError(t, pipeline.Bind(source, adapter))
		startPipeline(t, pipeline)

		waitFor(t, func() bool {
			_, err := index.Get(context.Background(), "doc-1")
			return err == nil
		})

		adapter.set("doc-1", "v2")
		adapter.signal()

		waitFor(t, func() bool {
			doc, err := index.Get(context.Background(), "doc-1")
			return err == nil && doc.Text == "v2"
		})
	})

	t.Run("items dropped by an enumerating source are tombstoned", func(t *testing.T) {
		detector, index := newParts()
		adapter := newFakeAdapter("src", true)
		adapter.set("doc-1", "text")

		pipeline := NewIngestPipeline(detector, index, nil)
		source := domain.Source{ID: "src", Kind: "fake", PollInterval: time.Hour}
		require.NoError(t, pipeline.Bind(source, adapter))
		startPipeline(t, pipeline)

		waitFor(t, func() bool {
			_, err := index.Get(context.Background(), "doc-1")
			return err == nil
		})

		adapter.remove("doc-1")
		adapter.signal()

		waitFor(t, func() bool {
			doc, err := index.Get(context.Background(), "doc-1")
			return err == nil && doc.Tombstoned
		})
	})

	t.Run("trigger-worthy changes reach the reasoner, index-only ones do not", func(t *testing.T) {
		detector, index := newParts()
		triggering := newFakeAdapter("hot", true)
		triggering.set("doc-hot", "critical change")
		quiet := newFakeAdapter("cold", true)
		quiet.set("doc-cold", "background material")

		reasoner := &recordingReasoner{}
		pipeline := NewIngestPipeline(detector, index, reasoner)
		require.NoError(t, pipeline.Bind(domain.Source{
			ID: "hot", Kind: "fake", PollInterval: time.Hour, TriggerWorthy: true,
		}, triggering))
		require.NoError(t, pipeline.Bind(domain.Source{
			ID: "cold", Kind: "fake", PollInterval: time.Hour,
		}, quiet))
		startPipeline(t, pipeline)

		waitFor(t, func() bool { return len(reasoner.submitted()) == 1 })

		events := reasoner.submitted()
		assert.Equal(t, "doc-hot", events[0].ItemID)
		assert.Equal(t, domain.ChangeNew, events[0].Kind)

		// The index-only source was still ingested.
		waitFor(t, func() bool {
			_, err := index.Get(context.Background(), "doc-cold")
			return err == nil
		})
	})

	t.Run("a failing source is recorded and does not stop the schedule", func(t *testing.T) {
		detector, index := newParts()
		adapter := newFakeAdapter("src", true)
		adapter.mu.Lock()
		adapter.err = domain.ErrSourceUnavailable
		adapter.mu.Unlock()

		pipeline := NewIngestPipeline(detector, index, nil)
		require.NoError(t, pipeline.Bind(domain.Source{ID: "src", Kind: "fake", PollInterval: time.Hour}, adapter))
		startPipeline(t, pipeline)

		waitFor(t, func() bool {
			status, err := pipeline.Status(context.Background())
			return err == nil && len(status.Sources) == 1 && status.Sources[0].Failures > 0
		})

		// Source recovers on the next wakeup.
		adapter.mu.Lock()
		adapter.err = nil
		adapter.items["doc-1"] = "recovered"
		adapter.mu.Unlock()
		adapter.signal()

		waitFor(t, func() bool {
			_, err := index.Get(context.Background(), "doc-1")
			return err == nil
		})
	})

	t.Run("status reflects running state and per-source counters", func(t *testing.T) {
		detector, index := newParts()
		adapter := newFakeAdapter("src", true)
		adapter.set("doc-1", "text")

		pipeline := NewIngestPipeline(detector, index, nil)
		require.NoError(t, pipeline.Bind(domain.Source{ID: "src", Kind: "fake", PollInterval: time.Hour}, adapter))

		status, err := pipeline.Status(context.Background())
		require.NoError(t, err)
		assert.False(t, status.Running)

		startPipeline(t, pipeline)

		waitFor(t, func() bool {
			status, err := pipeline.Status(context.Background())
			return err == nil && status.Running && len(status.Sources) == 1 && status.Sources[0].Polls > 0
		})
	})

	t.Run("binding requires a source ID and an adapter", func(t *testing.T) {
		detector, index := newParts()
		pipeline := NewIngestPipeline(detector, index, nil)

		assert.ErrorIs(t, pipeline.Bind(domain.Source{}, newFakeAdapter("x", false)), domain.ErrInvalidInput)
		assert.ErrorIs(t, pipeline.Bind(domain.Source{ID: "x"}, nil), domain.ErrInvalidInput)
	})
}
