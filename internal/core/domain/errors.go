package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedKind indicates an unknown source adapter kind.
	ErrUnsupportedKind = errors.New("unsupported source kind")

	// ErrSourceUnavailable indicates an adapter could not reach its source.
	// Adapter-local and non-fatal: the cycle is skipped, never escalated.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// The index cannot accept upserts without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingFailure indicates embedding computation failed after
	// bounded retries. The document is indexed with its previous embedding
	// rather than dropped.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrReasoningUnavailable indicates the reasoning capability is not
	// configured. Trigger-worthy events cannot start sessions without it.
	ErrReasoningUnavailable = errors.New("reasoning capability unavailable")

	// ErrReasoningFailure indicates the reasoning capability failed after
	// bounded retries. Fails the session, never the process.
	ErrReasoningFailure = errors.New("reasoning capability failure")

	// ErrMalformedDecision indicates the capability's structured output is
	// missing required fields or references entities no step produced.
	ErrMalformedDecision = errors.New("malformed decision")

	// ErrStepBudgetExceeded indicates a session hit its step budget without
	// reaching a decision. Fatal to the session only.
	ErrStepBudgetExceeded = errors.New("step-budget-exceeded")

	// ErrSessionRunning indicates a session for the item is already running;
	// the new event is queued behind it.
	ErrSessionRunning = errors.New("session already running for item")

	// ErrShuttingDown indicates the component rejected new work because a
	// shutdown is in progress.
	ErrShuttingDown = errors.New("shutting down")
)
