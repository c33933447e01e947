package driving

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// RetrievalService answers semantic queries against the document index
// and formats the results for consumption by reasoning steps and the
// query surfaces.
type RetrievalService interface {
	// Retrieve returns formatted snippets with provenance for a query.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.Snippet, error)
}
