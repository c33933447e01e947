package driven

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// SourceAdapter fetches content snapshots from a data source.
// Each adapter kind (filesystem, webpage) implements this interface.
//
// Adapters must be defensive: a malformed or structurally-changed source
// yields an empty snapshot slice or domain.ErrSourceUnavailable, never a
// panic. Absence of data is a valid, non-fatal outcome.
type SourceAdapter interface {
	// Kind returns the adapter kind identifier.
	Kind() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this adapter supports.
	Capabilities() AdapterCapabilities

	// Poll fetches the current snapshots for the source. For enumerating
	// adapters the result is the full item listing; items missing from it
	// are candidates for removal detection.
	Poll(ctx context.Context) ([]domain.Snapshot, error)

	// Watch listens for change hints and delivers them as wakeup signals.
	// A wakeup asks the scheduler to poll ahead of the next interval tick;
	// polling remains the source of truth. Only available when
	// SupportsWatch is true.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases resources.
	Close() error
}

// AdapterCapabilities describes what a source adapter supports.
type AdapterCapabilities struct {
	// Enumerates indicates Poll returns the full item listing each cycle,
	// enabling REMOVED detection. Delta-only adapters never yield REMOVED.
	Enumerates bool

	// SupportsWatch indicates the adapter can push change hints.
	SupportsWatch bool

	// RateLimited indicates the adapter throttles its own fetches
	// internally. Informational.
	RateLimited bool
}
