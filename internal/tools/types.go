// Package tools provides the domain tool registry for the reasoning
// orchestrator. A tool is a named capability with a JSON-schema'd input
// contract; the orchestrator dispatches tool calls by name and never
// special-cases tool identity, so new tools are added by registering
// them, with no orchestrator changes.
package tools

import (
	"context"
	"errors"
)

// Registry errors.
var (
	// ErrToolNotFound indicates a dispatch for an unregistered tool name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered indicates a duplicate registration.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrMissingRequiredArg indicates a call without a required argument.
	ErrMissingRequiredArg = errors.New("missing required argument")
)

// Schema describes a tool's input as a JSON Schema fragment.
type Schema struct {
	// Properties maps argument names to their schema
	// ({"type": "string", "description": ...}).
	Properties map[string]map[string]any

	// Required lists argument names that must be present.
	Required []string
}

// Result carries a tool invocation outcome back to the session trace.
type Result struct {
	// Output is the tool output text, appended to the reasoning context.
	Output string

	// Entities lists the entity identifiers the output references. The
	// orchestrator validates decision alerts against the union of these.
	Entities []string
}

// Tool is one callable capability.
type Tool struct {
	// Name is the registry key.
	Name string

	// Description explains when the tool is useful.
	Description string

	// Schema describes the arguments.
	Schema Schema

	// Execute runs the tool.
	Execute func(ctx context.Context, args map[string]any) (*Result, error)
}

// Validate checks the tool is well-formed.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return errors.New("tool name is required")
	}
	if t.Execute == nil {
		return errors.New("tool execute function is required")
	}
	return nil
}
