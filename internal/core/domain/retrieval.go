package domain

import "time"

// MaxQueryResults caps k for index queries, bounding reasoning-context size.
const MaxQueryResults = 50

// QueryHit is one index query result.
type QueryHit struct {
	// ItemID is the matched document.
	ItemID string

	// Score is the cosine similarity in [0, 1].
	Score float64

	// Version is the document version the hit was scored against.
	Version uint64
}

// Snippet is a formatted retrieval result with provenance, sized for
// inclusion in a reasoning context.
type Snippet struct {
	// ItemID is the source document.
	ItemID string

	// SourceID identifies the originating source.
	SourceID string

	// Title is the document title.
	Title string

	// Text is the (possibly truncated) document text.
	Text string

	// Truncated is true when Text was cut to fit the snippet budget.
	Truncated bool

	// Score is the similarity score from the underlying query.
	Score float64

	// UpdatedAt is when the underlying document version was indexed.
	UpdatedAt time.Time
}

// RetrieveOptions configures a retrieval call.
type RetrieveOptions struct {
	// Limit is the maximum number of snippets (default 5, capped at
	// MaxQueryResults).
	Limit int

	// SourceIDs restricts results to the given sources when non-empty.
	SourceIDs []string

	// MaxSnippetLen truncates each snippet's text (default 800 runes).
	MaxSnippetLen int
}
