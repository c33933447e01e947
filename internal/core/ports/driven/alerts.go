package driven

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// AlertSink is the durable log of emitted decisions and their traces.
// The dashboard and downstream notifiers consume from this sink.
//
// Delivery is at-least-once: entries are keyed by session ID and a
// re-publish of the same session replaces, never duplicates.
type AlertSink interface {
	// Publish records a terminal session with its decision and trace.
	Publish(ctx context.Context, session *domain.ReasoningSession) error

	// Recent returns the most recent terminal sessions, newest first.
	Recent(ctx context.Context, limit int) ([]domain.ReasoningSession, error)

	// Get retrieves an archived session by ID.
	Get(ctx context.Context, sessionID string) (*domain.ReasoningSession, error)

	// Close releases resources.
	Close() error
}
