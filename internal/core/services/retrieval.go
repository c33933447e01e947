package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driving"
	"github.com/helical-labs/medwatch/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Retrieval defaults.
const (
	defaultRetrieveLimit = 5
	defaultSnippetLen    = 800
)

// RetrievalService is a thin read-oriented facade over the document index.
// It adds result formatting (truncation, source attribution) and holds no
// state of its own.
type RetrievalService struct {
	index *DocumentIndex
}

// NewRetrievalService creates a retrieval service over an index.
func NewRetrievalService(index *DocumentIndex) *RetrievalService {
	return &RetrievalService{index: index}
}

// Retrieve runs a semantic query and formats the hits as snippets with
// provenance.
func (r *RetrievalService) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Snippet{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}
	if limit > domain.MaxQueryResults {
		limit = domain.MaxQueryResults
	}

	maxLen := opts.MaxSnippetLen
	if maxLen <= 0 {
		maxLen = defaultSnippetLen
	}

	// Over-fetch when a source filter will discard hits.
	fetchLimit := limit
	if len(opts.SourceIDs) > 0 {
		fetchLimit = limit * 3
		if fetchLimit > domain.MaxQueryResults {
			fetchLimit = domain.MaxQueryResults
		}
	}

	hits, err := r.index.Query(ctx, query, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	logger.Debug("retrieve: %d hits for %q", len(hits), query)

	allowed := make(map[string]struct{}, len(opts.SourceIDs))
	for _, id := range opts.SourceIDs {
		allowed[id] = struct{}{}
	}

	snippets := make([]domain.Snippet, 0, limit)
	for _, hit := range hits {
		if len(snippets) == limit {
			break
		}

		doc, err := r.index.Get(ctx, hit.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get document: %w", err)
		}
		if len(allowed) > 0 {
			if _, ok := allowed[doc.SourceID]; !ok {
				continue
			}
		}

		text, truncated := truncate(doc.Text, maxLen)
		snippets = append(snippets, domain.Snippet{
			ItemID:    doc.ItemID,
			SourceID:  doc.SourceID,
			Title:     doc.Title,
			Text:      text,
			Truncated: truncated,
			Score:     hit.Score,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return snippets, nil
}

// truncate cuts text to maxLen runes on a word boundary where possible.
func truncate(text string, maxLen int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text, false
	}

	cut := string(runes[:maxLen])
	if idx := strings.LastIndexByte(cut, ' '); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…", true
}
