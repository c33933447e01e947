package domain

import "time"

// Fingerprint is a deterministic digest of normalised item content.
// Two snapshots of the same item with equal fingerprints are semantically
// equal and must not re-trigger downstream work.
type Fingerprint uint64

// ChangeKind classifies a detected content change.
type ChangeKind int

const (
	// ChangeNew indicates an item seen for the first time.
	ChangeNew ChangeKind = iota

	// ChangeUpdated indicates an item whose content fingerprint changed.
	ChangeUpdated

	// ChangeRemoved indicates an item absent from a full source enumeration.
	ChangeRemoved
)

// String returns the change kind as an upper-case label.
func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "NEW"
	case ChangeUpdated:
		return "UPDATED"
	case ChangeRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// ChangeEvent records one detected content change. It is created exactly
// once per change by the delta detector and never mutated afterwards.
// The index consumes every event; the orchestrator consumes events whose
// source is trigger-worthy.
type ChangeEvent struct {
	// ItemID identifies the changed item. For items that reappear after a
	// removal this carries a fresh generation suffix, so a tombstoned
	// identity is never resurrected.
	ItemID string

	// SourceID links to the originating Source.
	SourceID string

	// Kind is NEW, UPDATED or REMOVED.
	Kind ChangeKind

	// Title is the item title at observation time. Empty for REMOVED.
	Title string

	// Content is the normalised content at observation time. Empty for REMOVED.
	Content string

	// ObservedAt orders events causally per item.
	ObservedAt time.Time
}
