package driving

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// Reasoner runs bounded reasoning sessions for trigger-worthy change
// events.
type Reasoner interface {
	// Submit queues a change event for reasoning. Events for the same item
	// are strictly serialised; events for distinct items run concurrently
	// up to the worker pool bound. Submit never blocks on session work.
	Submit(ctx context.Context, event domain.ChangeEvent) error

	// Ask runs a one-shot session from an ad-hoc query instead of a change
	// event, blocking until the session terminates.
	Ask(ctx context.Context, query string) (*domain.ReasoningSession, error)

	// Active returns the number of sessions currently running.
	Active() int

	// Shutdown stops accepting work, waits up to the configured grace
	// period for running sessions, then forcibly aborts the remainder.
	Shutdown(ctx context.Context) error
}

// PipelineStatus reports the state of the ingestion pipeline.
type PipelineStatus struct {
	// Running is true while the pipeline loop is active.
	Running bool

	// Sources holds per-source poll statistics.
	Sources []domain.SourceStats

	// ActiveSessions is the number of reasoning sessions in flight.
	ActiveSessions int
}

// Pipeline drives the whole ingestion side: scheduling adapters, delta
// detection, index writes and trigger dispatch.
type Pipeline interface {
	// Run starts all source schedules and blocks until ctx is cancelled
	// or Stop is called.
	Run(ctx context.Context) error

	// Stop initiates a graceful shutdown with the configured grace period.
	Stop() error

	// Status returns current pipeline state.
	Status(ctx context.Context) (*PipelineStatus, error)
}
