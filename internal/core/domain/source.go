package domain

import "time"

// MinPollInterval is the enforced floor for adapter poll intervals.
// Sources configured below the floor are clamped to it, bounding the load
// placed on external systems.
const MinPollInterval = 5 * time.Second

// DefaultPollInterval applies when a source omits its interval.
const DefaultPollInterval = 30 * time.Second

// Source is one configured ingestion source. Sources are loaded once at
// startup and immutable during a run.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// Kind identifies the adapter ("filesystem", "webpage").
	Kind string

	// Name is the human-readable name for this source.
	Name string

	// PollInterval is how often the adapter polls. Clamped to MinPollInterval.
	PollInterval time.Duration

	// TriggerWorthy marks sources whose changes start reasoning sessions.
	// Index-only sources merely enrich the corpus.
	TriggerWorthy bool

	// Priority resolves cross-source write conflicts for the same item;
	// higher wins. Defaults to 0.
	Priority int

	// Config contains adapter-specific settings (path, glob, url).
	Config map[string]string
}

// EffectiveInterval returns the poll interval with defaults and the floor
// applied.
func (s *Source) EffectiveInterval() time.Duration {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	return interval
}

// SourceStats tracks per-source poll outcomes for the status surface.
type SourceStats struct {
	// SourceID links to the Source.
	SourceID string

	// Polls counts completed poll cycles.
	Polls int

	// Failures counts cycles skipped due to adapter errors.
	Failures int

	// Changes counts change events emitted for this source.
	Changes int

	// LastPoll is when the last cycle completed.
	LastPoll time.Time

	// LastError is the message of the most recent poll failure, if any.
	LastError string
}
