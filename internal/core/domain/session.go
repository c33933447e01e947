package domain

import "time"

// SessionStatus is the lifecycle state of a reasoning session.
// RUNNING is the only non-terminal state; sessions are never resumed.
type SessionStatus int

const (
	// SessionRunning indicates the session is executing its step loop.
	SessionRunning SessionStatus = iota

	// SessionCompleted indicates the session produced a validated decision.
	SessionCompleted

	// SessionFailed indicates the session terminated without a decision.
	SessionFailed

	// SessionAborted indicates the session was cancelled before completion.
	SessionAborted
)

// String returns the status as an upper-case label.
func (s SessionStatus) String() string {
	switch s {
	case SessionRunning:
		return "RUNNING"
	case SessionCompleted:
		return "COMPLETED"
	case SessionFailed:
		return "FAILED"
	case SessionAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is final.
func (s SessionStatus) Terminal() bool {
	return s != SessionRunning
}

// StepKind classifies a reasoning step.
type StepKind int

const (
	// StepRetrieve is a semantic retrieval against the document index.
	StepRetrieve StepKind = iota

	// StepToolCall is a dispatched domain tool invocation.
	StepToolCall

	// StepDecision is the final structured decision.
	StepDecision
)

// String returns the step kind as an upper-case label.
func (k StepKind) String() string {
	switch k {
	case StepRetrieve:
		return "RETRIEVE"
	case StepToolCall:
		return "TOOL_CALL"
	case StepDecision:
		return "DECISION"
	default:
		return "UNKNOWN"
	}
}

// ReasoningStep is one entry in a session's audit trace.
// Steps are immutable once appended.
type ReasoningStep struct {
	// Number is the 1-based ordinal within the session.
	Number int

	// Kind is RETRIEVE, TOOL_CALL or DECISION.
	Kind StepKind

	// Tool names the dispatched tool for TOOL_CALL steps.
	Tool string

	// Input is the step input (query text, tool arguments, decision context).
	Input string

	// Output is the step output (snippets, tool result, decision summary).
	Output string

	// Timestamp is when the step was appended.
	Timestamp time.Time
}

// ReasoningSession is one bounded run of the tool-calling loop, from a
// trigger-worthy change event to a terminal status. The orchestrator owns
// the session for its entire lifetime and archives it on termination.
type ReasoningSession struct {
	// ID is the unique session identifier.
	ID string

	// Trigger is the change event that started this session.
	Trigger ChangeEvent

	// Steps is the ordered audit trace.
	Steps []ReasoningStep

	// Status is the lifecycle state.
	Status SessionStatus

	// Result is the validated decision. Nil unless Status is COMPLETED.
	Result *Decision

	// FailureReason is a human-readable explanation when Status is FAILED
	// or ABORTED.
	FailureReason string

	// StartedAt is when the session was created.
	StartedAt time.Time

	// EndedAt is when the session reached a terminal status.
	EndedAt time.Time
}

// AppendStep appends a step with the next ordinal number.
func (s *ReasoningSession) AppendStep(kind StepKind, tool, input, output string) {
	s.Steps = append(s.Steps, ReasoningStep{
		Number:    len(s.Steps) + 1,
		Kind:      kind,
		Tool:      tool,
		Input:     input,
		Output:    output,
		Timestamp: time.Now(),
	})
}
