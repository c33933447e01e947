package driven

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// ReasoningService is the opaque reasoning capability. Given accumulated
// context and the signatures of the callable tools, it returns either a
// tool invocation request or a final decision.
//
// The orchestrator treats it as a black box with bounded latency: calls
// are retried with backoff on transient failure, and exhaustion fails the
// session, not the process.
type ReasoningService interface {
	// Infer runs one reasoning step.
	Infer(ctx context.Context, req InferRequest) (*InferResult, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ToolSignature describes one callable tool to the reasoning capability.
type ToolSignature struct {
	// Name is the registry key the capability uses to invoke the tool.
	Name string

	// Description explains when the tool is useful.
	Description string

	// InputSchema is a JSON Schema object describing the arguments.
	InputSchema map[string]any
}

// ContextEntry is one piece of accumulated reasoning context.
type ContextEntry struct {
	// Role is "trigger", "retrieval", "tool" or "system".
	Role string

	// Label names the origin (tool name, source ID).
	Label string

	// Content is the entry text.
	Content string
}

// InferRequest carries the inputs for one reasoning step.
type InferRequest struct {
	// Context is the accumulated session context, oldest first.
	Context []ContextEntry

	// Tools lists the callable tool signatures.
	Tools []ToolSignature
}

// ToolCallRequest asks the orchestrator to dispatch a named tool.
type ToolCallRequest struct {
	// Name is the tool registry key.
	Name string

	// Arguments are the parsed tool arguments.
	Arguments map[string]any
}

// InferResult is the outcome of one reasoning step: exactly one of
// ToolCall or Decision is non-nil.
type InferResult struct {
	ToolCall *ToolCallRequest
	Decision *domain.Decision
}
