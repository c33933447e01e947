package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/logger"
	"github.com/helical-labs/medwatch/internal/normalisers/plaintext"
)

// DeltaDetector turns adapter snapshots into change events by comparing
// content fingerprints. The no-change case is the dominant one under
// polling and costs a single hash plus an O(1) lookup; nothing downstream
// is touched.
type DeltaDetector struct {
	store driven.FingerprintStore
	locks *keyedMutex

	// generations counts removals per (source, item) key. An item that
	// reappears after a REMOVED gets a fresh identity rather than
	// resurrecting the tombstoned one.
	genMu       sync.Mutex
	generations map[string]int
}

// NewDeltaDetector creates a delta detector over a fingerprint store.
func NewDeltaDetector(store driven.FingerprintStore) *DeltaDetector {
	return &DeltaDetector{
		store:       store,
		locks:       newKeyedMutex(),
		generations: make(map[string]int),
	}
}

// Detect compares a snapshot against the stored fingerprint for its item.
// It returns a NEW or UPDATED event, or nil when the content is unchanged.
// Access is serialised per (source, item) key so an overlapping adapter
// cycle cannot lose an update.
func (d *DeltaDetector) Detect(ctx context.Context, snap domain.Snapshot) (*domain.ChangeEvent, error) {
	key := fingerprintKey(snap.SourceID, snap.ItemID)
	unlock := d.locks.Lock(key)
	defer unlock()

	fp := domain.Fingerprint(xxhash.Sum64String(plaintext.Canonicalise(snap.Content)))

	prev, exists, err := d.store.Get(ctx, snap.SourceID, snap.ItemID)
	if err != nil {
		return nil, fmt.Errorf("get fingerprint: %w", err)
	}

	if exists && prev == fp {
		// Dominant case under polling: pure no-op.
		return nil, nil
	}

	if err := d.store.Put(ctx, snap.SourceID, snap.ItemID, fp); err != nil {
		return nil, fmt.Errorf("put fingerprint: %w", err)
	}

	kind := domain.ChangeUpdated
	if !exists {
		kind = domain.ChangeNew
	}

	event := &domain.ChangeEvent{
		ItemID:     d.effectiveItemID(snap.SourceID, snap.ItemID),
		SourceID:   snap.SourceID,
		Kind:       kind,
		Title:      snap.Title,
		Content:    snap.Content,
		ObservedAt: snap.FetchedAt,
	}
	logger.Debug("delta: %s %s", event.Kind, event.ItemID)
	return event, nil
}

// Sweep detects removals for enumerating sources: every stored fingerprint
// whose item is absent from the latest full listing yields a REMOVED event.
// Sources that provide only deltas must not call Sweep.
func (d *DeltaDetector) Sweep(ctx context.Context, sourceID string, listing []string, observedAt time.Time) ([]domain.ChangeEvent, error) {
	present := make(map[string]struct{}, len(listing))
	for _, itemID := range listing {
		present[itemID] = struct{}{}
	}

	known, err := d.store.Keys(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}

	var events []domain.ChangeEvent
	for _, itemID := range known {
		if _, ok := present[itemID]; ok {
			continue
		}

		unlock := d.locks.Lock(fingerprintKey(sourceID, itemID))

		// Re-check under the lock: a concurrent Detect may have re-added it.
		_, exists, err := d.store.Get(ctx, sourceID, itemID)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("get fingerprint: %w", err)
		}
		if !exists {
			unlock()
			continue
		}

		if err := d.store.Delete(ctx, sourceID, itemID); err != nil {
			unlock()
			return nil, fmt.Errorf("delete fingerprint: %w", err)
		}

		removedID := d.effectiveItemID(sourceID, itemID)
		d.bumpGeneration(sourceID, itemID)
		unlock()

		logger.Debug("delta: REMOVED %s", removedID)
		events = append(events, domain.ChangeEvent{
			ItemID:     removedID,
			SourceID:   sourceID,
			Kind:       domain.ChangeRemoved,
			ObservedAt: observedAt,
		})
	}

	return events, nil
}

// effectiveItemID returns the item identity for the current generation.
// Generation zero keeps the bare item ID; reappearances carry a suffix.
func (d *DeltaDetector) effectiveItemID(sourceID, itemID string) string {
	d.genMu.Lock()
	gen := d.generations[fingerprintKey(sourceID, itemID)]
	d.genMu.Unlock()

	if gen == 0 {
		return itemID
	}
	return fmt.Sprintf("%s#%d", itemID, gen+1)
}

func (d *DeltaDetector) bumpGeneration(sourceID, itemID string) {
	d.genMu.Lock()
	d.generations[fingerprintKey(sourceID, itemID)]++
	d.genMu.Unlock()
}

func fingerprintKey(sourceID, itemID string) string {
	return sourceID + "\x00" + itemID
}
