package services

import (
	"context"
	"errors"
	"sync"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// fakeEmbedder returns preconfigured vectors by exact text, falling back
// to a constant vector, and can be told to fail its first N calls.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	failures int
	calls    int
}

func newFakeEmbedder(vectors map[string][]float32) *fakeEmbedder {
	return &fakeEmbedder{vectors: vectors}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("embedding backend unavailable")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0.5, 0.5, 0.5}, nil
}

func (f *fakeEmbedder) Dimensions() int            { return 3 }
func (f *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (f *fakeEmbedder) Ping(context.Context) error { return nil }
func (f *fakeEmbedder) Close() error               { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingReasoner records submitted events without running sessions.
type recordingReasoner struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (r *recordingReasoner) Submit(_ context.Context, event domain.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingReasoner) Ask(context.Context, string) (*domain.ReasoningSession, error) {
	return nil, domain.ErrReasoningUnavailable
}

func (r *recordingReasoner) Active() int { return 0 }

func (r *recordingReasoner) Shutdown(context.Context) error { return nil }

func (r *recordingReasoner) submitted() []domain.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}
