// Package mcp provides an MCP (Model Context Protocol) server adapter for
// medwatch. It exposes semantic retrieval and the alert log to MCP-compatible
// AI assistants.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
