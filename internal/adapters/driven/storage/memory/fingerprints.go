package memory

import (
	"context"
	"sync"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore is a thread-safe in-memory fingerprint store keyed by
// (source, item).
type FingerprintStore struct {
	mu  sync.RWMutex
	fps map[string]map[string]domain.Fingerprint
}

// NewFingerprintStore creates an empty in-memory fingerprint store.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{fps: make(map[string]map[string]domain.Fingerprint)}
}

// Get returns the stored fingerprint and whether one exists.
func (s *FingerprintStore) Get(_ context.Context, sourceID, itemID string) (domain.Fingerprint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.fps[sourceID][itemID]
	return fp, ok, nil
}

// Put stores a fingerprint.
func (s *FingerprintStore) Put(_ context.Context, sourceID, itemID string, fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fps[sourceID] == nil {
		s.fps[sourceID] = make(map[string]domain.Fingerprint)
	}
	s.fps[sourceID][itemID] = fp
	return nil
}

// Delete removes a fingerprint. Deleting an absent key is a no-op.
func (s *FingerprintStore) Delete(_ context.Context, sourceID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fps[sourceID], itemID)
	return nil
}

// Keys returns the item IDs with stored fingerprints for a source.
func (s *FingerprintStore) Keys(_ context.Context, sourceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.fps[sourceID]))
	for itemID := range s.fps[sourceID] {
		keys = append(keys, itemID)
	}
	return keys, nil
}
