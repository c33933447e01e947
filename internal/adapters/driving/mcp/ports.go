package mcp

import (
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/core/ports/driving"
)

// Ports aggregates the interfaces the MCP server serves from.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers semantic queries against the document index.
	Retrieval driving.RetrievalService

	// Alerts is the archived session log. Optional; alert tools degrade
	// to empty results without it.
	Alerts driven.AlertSink
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Alerts is optional.
	return nil
}
