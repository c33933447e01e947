package domain

import "time"

// Snapshot is one observation of a source item as fetched by an adapter.
// It is ephemeral: produced and consumed within a single poll cycle and
// never persisted.
type Snapshot struct {
	// SourceID links to the Source that produced this snapshot.
	SourceID string

	// ItemID identifies the logical item within the source (file path, URL).
	ItemID string

	// Title is the human-readable title, if the source provides one.
	Title string

	// Content is the normalised text content.
	Content string

	// FetchedAt is when the adapter observed this content.
	FetchedAt time.Time

	// Metadata contains adapter-specific key-value pairs.
	Metadata map[string]string
}

// IndexedDocument is a document held by the Document Index, together with
// its embedding vector. It is owned exclusively by the index: readers always
// observe a matched (text, embedding) pair from a single version.
type IndexedDocument struct {
	// ItemID identifies the document. Unique within the index.
	ItemID string

	// SourceID links to the Source the document came from.
	SourceID string

	// Title is the human-readable title.
	Title string

	// Text is the full normalised text content.
	Text string

	// Embedding is the vector representation used for semantic search.
	Embedding []float32

	// EmbeddingStale is true when the last embedding refresh failed and the
	// vector belongs to an earlier version of the text.
	EmbeddingStale bool

	// Version increments on every upsert of this item. Starts at 1.
	Version uint64

	// SourcePriority resolves write conflicts when two sources claim the
	// same item: higher priority wins regardless of arrival order.
	SourcePriority int

	// Tombstoned marks a removed document. The text is retained for audit
	// but the document is excluded from all queries.
	Tombstoned bool

	// ObservedAt is the observation time of the change this version reflects.
	ObservedAt time.Time

	// UpdatedAt is when the index applied this version.
	UpdatedAt time.Time

	// Tags contains free-form metadata (source kind, URI, etc).
	Tags map[string]string
}
