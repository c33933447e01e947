package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/core/ports/driving"
	"github.com/helical-labs/medwatch/internal/logger"
	"github.com/helical-labs/medwatch/internal/tools"
)

// Ensure Orchestrator implements the interface.
var _ driving.Reasoner = (*Orchestrator)(nil)

// Orchestrator defaults.
const (
	defaultStepBudget    = 8
	defaultInferRetries  = 2
	defaultStepTimeout   = 60 * time.Second
	defaultSessionSlots  = 4
	defaultShutdownGrace = 10 * time.Second
	triggerSnippetLimit  = 5
)

// OrchestratorConfig tunes the reasoning loop bounds.
type OrchestratorConfig struct {
	// StepBudget caps recorded steps per session.
	StepBudget int

	// InferRetries bounds reasoning capability retries per step.
	InferRetries int

	// StepTimeout bounds a single capability call.
	StepTimeout time.Duration

	// MaxConcurrentSessions bounds sessions running at once.
	MaxConcurrentSessions int

	// ShutdownGrace is how long Shutdown waits before forcing aborts.
	ShutdownGrace time.Duration
}

func (c OrchestratorConfig) defaulted() OrchestratorConfig {
	if c.StepBudget <= 0 {
		c.StepBudget = defaultStepBudget
	}
	if c.InferRetries <= 0 {
		c.InferRetries = defaultInferRetries
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = defaultStepTimeout
	}
	if c.MaxConcurrentSessions <= 0 {
		c.MaxConcurrentSessions = defaultSessionSlots
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = defaultShutdownGrace
	}
	return c
}

// Orchestrator runs bounded reasoning sessions over trigger-worthy change
// events. Sessions for the same item are strictly serialised through a
// per-item queue; sessions for distinct items run concurrently up to a
// semaphore-bounded worker pool.
type Orchestrator struct {
	retrieval driving.RetrievalService
	reasoner  driven.ReasoningService
	registry  *tools.Registry
	sink      driven.AlertSink
	config    OrchestratorConfig

	slots *semaphore.Weighted

	// lifetime governs all session work; Shutdown cancels it after the
	// grace period, forcing remaining sessions to ABORTED.
	lifetime context.Context
	cancel   context.CancelFunc

	mu           sync.Mutex
	queues       map[string][]domain.ChangeEvent
	busy         map[string]struct{}
	active       int
	shuttingDown bool
	wg           sync.WaitGroup
}

// NewOrchestrator creates a reasoning orchestrator.
func NewOrchestrator(
	retrieval driving.RetrievalService,
	reasoner driven.ReasoningService,
	registry *tools.Registry,
	sink driven.AlertSink,
	config OrchestratorConfig,
) *Orchestrator {
	lifetime, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		retrieval: retrieval,
		reasoner:  reasoner,
		registry:  registry,
		sink:      sink,
		config:    config.defaulted(),
		slots:     semaphore.NewWeighted(int64(config.defaulted().MaxConcurrentSessions)),
		lifetime:  lifetime,
		cancel:    cancel,
		queues:    make(map[string][]domain.ChangeEvent),
		busy:      make(map[string]struct{}),
	}
}

// Submit queues a change event for reasoning. If a session for the same
// item is already running, the event waits behind it; it is never merged
// into the running session. Submit itself never blocks on session work.
func (o *Orchestrator) Submit(_ context.Context, event domain.ChangeEvent) error {
	if o.reasoner == nil {
		return domain.ErrReasoningUnavailable
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shuttingDown {
		return domain.ErrShuttingDown
	}

	if _, running := o.busy[event.ItemID]; running {
		o.queues[event.ItemID] = append(o.queues[event.ItemID], event)
		logger.Debug("orchestrator: queued event for %s behind running session", event.ItemID)
		return nil
	}

	o.busy[event.ItemID] = struct{}{}
	o.wg.Add(1)
	go o.worker(event)
	return nil
}

// Ask runs a one-shot session from an ad-hoc query, blocking until the
// session terminates.
func (o *Orchestrator) Ask(ctx context.Context, query string) (*domain.ReasoningSession, error) {
	if o.reasoner == nil {
		return nil, domain.ErrReasoningUnavailable
	}

	event := domain.ChangeEvent{
		ItemID:     "ask:" + uuid.New().String(),
		SourceID:   "operator",
		Kind:       domain.ChangeNew,
		Content:    query,
		ObservedAt: time.Now(),
	}

	if err := o.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire session slot: %w", err)
	}
	defer o.slots.Release(1)

	o.addActive(1)
	defer o.addActive(-1)

	return o.runSession(ctx, event), nil
}

// Active returns the number of sessions currently running.
func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Shutdown stops accepting work, waits up to the grace period for running
// sessions, then cancels the remainder, which marks them ABORTED.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.shuttingDown = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(o.config.ShutdownGrace):
	case <-ctx.Done():
	}

	logger.Warn("orchestrator: grace period elapsed, aborting %d running sessions", o.Active())
	o.cancel()
	<-done
	return nil
}

// worker drains the per-item queue, running one session at a time.
func (o *Orchestrator) worker(event domain.ChangeEvent) {
	defer o.wg.Done()

	for {
		if err := o.slots.Acquire(o.lifetime, 1); err != nil {
			// Shutdown force-cancel: surface the abort in the sink so the
			// event is not silently dropped.
			o.publishAborted(event, "aborted before start: shutdown in progress")
		} else {
			o.addActive(1)
			o.runSession(o.lifetime, event)
			o.addActive(-1)
			o.slots.Release(1)
		}

		o.mu.Lock()
		queue := o.queues[event.ItemID]
		if len(queue) == 0 {
			delete(o.busy, event.ItemID)
			o.mu.Unlock()
			return
		}
		event = queue[0]
		o.queues[event.ItemID] = queue[1:]
		o.mu.Unlock()
	}
}

// runSession executes one bounded reasoning session to a terminal status
// and publishes it to the alert sink.
func (o *Orchestrator) runSession(ctx context.Context, event domain.ChangeEvent) *domain.ReasoningSession {
	session := &domain.ReasoningSession{
		ID:        uuid.New().String(),
		Trigger:   event,
		Status:    domain.SessionRunning,
		StartedAt: time.Now(),
	}
	logger.Section("Reasoning Session " + session.ID)
	logger.Info("orchestrator: session %s for %s (%s)", session.ID, event.ItemID, event.Kind)

	// whitelist accumulates every entity a retrieval or tool step
	// produced; decision alerts may only reference members.
	whitelist := newEntitySet()
	whitelist.add(event.ItemID)

	reasoningCtx := o.openingContext(ctx, session, event, whitelist)

	for {
		if session.Status.Terminal() {
			break
		}
		if len(session.Steps) >= o.config.StepBudget {
			o.fail(session, domain.ErrStepBudgetExceeded.Error())
			break
		}
		if ctx.Err() != nil {
			o.abort(session, "cancelled: "+ctx.Err().Error())
			break
		}

		result, err := o.inferWithRetry(ctx, driven.InferRequest{
			Context: reasoningCtx,
			Tools:   o.registry.Signatures(),
		})
		if err != nil {
			if ctx.Err() != nil {
				o.abort(session, "cancelled during inference: "+ctx.Err().Error())
			} else {
				o.fail(session, fmt.Sprintf("%v: %v", domain.ErrReasoningFailure, err))
			}
			break
		}

		switch {
		case result.ToolCall != nil:
			entry := o.dispatchTool(ctx, session, result.ToolCall, whitelist)
			reasoningCtx = append(reasoningCtx, entry)

		case result.Decision != nil:
			o.finishWithDecision(session, result.Decision, whitelist)

		default:
			o.fail(session, fmt.Sprintf("%v: capability returned neither tool call nor decision", domain.ErrMalformedDecision))
		}
	}

	o.publish(session)
	return session
}

// openingContext seeds the session context with the trigger and the
// opening RETRIEVE step.
func (o *Orchestrator) openingContext(
	ctx context.Context,
	session *domain.ReasoningSession,
	event domain.ChangeEvent,
	whitelist *entitySet,
) []driven.ContextEntry {
	entries := []driven.ContextEntry{{
		Role:    "trigger",
		Label:   event.SourceID,
		Content: fmt.Sprintf("%s %s: %s", event.Kind, event.ItemID, event.Content),
	}}

	snippets, err := o.retrieval.Retrieve(ctx, event.Content, domain.RetrieveOptions{Limit: triggerSnippetLimit})
	if err != nil {
		// Retrieval failure degrades the context but does not fail the
		// session; the capability still sees the trigger itself.
		logger.Warn("orchestrator: opening retrieval failed for session %s: %v", session.ID, err)
		session.AppendStep(domain.StepRetrieve, "", event.Content, "retrieval failed: "+err.Error())
		return entries
	}

	var b strings.Builder
	for _, snip := range snippets {
		whitelist.add(snip.ItemID)
		whitelist.add(snip.Title)
		fmt.Fprintf(&b, "[%s | %s | score %.3f] %s\n", snip.ItemID, snip.SourceID, snip.Score, snip.Text)
	}
	output := strings.TrimSpace(b.String())
	if output == "" {
		output = "no matching documents"
	}

	session.AppendStep(domain.StepRetrieve, "", event.Content, output)
	return append(entries, driven.ContextEntry{
		Role:    "retrieval",
		Label:   "index",
		Content: output,
	})
}

// dispatchTool executes a requested tool call and appends its step.
// Tool errors are recorded in the trace and surfaced to the capability as
// context rather than failing the session.
func (o *Orchestrator) dispatchTool(
	ctx context.Context,
	session *domain.ReasoningSession,
	call *driven.ToolCallRequest,
	whitelist *entitySet,
) driven.ContextEntry {
	argsJSON, _ := json.Marshal(call.Arguments)

	result, err := o.registry.Execute(ctx, call.Name, call.Arguments)
	output := ""
	if err != nil {
		output = "tool error: " + err.Error()
		logger.Warn("orchestrator: tool %s failed in session %s: %v", call.Name, session.ID, err)
	} else {
		output = result.Output
		for _, entity := range result.Entities {
			whitelist.add(entity)
		}
	}

	session.AppendStep(domain.StepToolCall, call.Name, string(argsJSON), output)
	return driven.ContextEntry{
		Role:    "tool",
		Label:   call.Name,
		Content: output,
	}
}

// finishWithDecision validates the capability's decision and completes
// the session, or fails it on malformed output.
func (o *Orchestrator) finishWithDecision(session *domain.ReasoningSession, decision *domain.Decision, whitelist *entitySet) {
	if err := validateDecision(decision, whitelist); err != nil {
		o.fail(session, err.Error())
		return
	}

	for _, warning := range decision.Clamp() {
		logger.Warn("orchestrator: session %s decision inconsistency: %s", session.ID, warning)
	}

	summary := fmt.Sprintf("safety_score=%d alerts=%d", decision.SafetyScore, len(decision.Alerts))
	session.AppendStep(domain.StepDecision, "", "", summary)
	session.Status = domain.SessionCompleted
	session.Result = decision
	session.EndedAt = time.Now()
	logger.Info("orchestrator: session %s COMPLETED (%s)", session.ID, summary)
}

// validateDecision enforces the decision contract: required fields must be
// present and alerts may only reference entities produced by a retrieval
// or tool step.
func validateDecision(decision *domain.Decision, whitelist *entitySet) error {
	if decision.Summary == "" {
		return fmt.Errorf("%w: summary is required", domain.ErrMalformedDecision)
	}
	for i, alert := range decision.Alerts {
		if alert.Title == "" {
			return fmt.Errorf("%w: alert %d has no title", domain.ErrMalformedDecision, i)
		}
		for _, entity := range alert.AffectedEntities {
			if !whitelist.has(entity) {
				return fmt.Errorf("%w: alert %q references unknown entity %q",
					domain.ErrMalformedDecision, alert.Title, entity)
			}
		}
	}
	return nil
}

// inferWithRetry calls the reasoning capability with backoff, bounding
// each attempt with the step timeout.
func (o *Orchestrator) inferWithRetry(ctx context.Context, req driven.InferRequest) (*driven.InferResult, error) {
	var result *driven.InferResult

	operation := func() error {
		stepCtx, cancel := context.WithTimeout(ctx, o.config.StepTimeout)
		defer cancel()

		res, err := o.reasoner.Infer(stepCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(o.config.InferRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) fail(session *domain.ReasoningSession, reason string) {
	session.Status = domain.SessionFailed
	session.FailureReason = reason
	session.EndedAt = time.Now()
	logger.Warn("orchestrator: session %s FAILED: %s", session.ID, reason)
}

func (o *Orchestrator) abort(session *domain.ReasoningSession, reason string) {
	session.Status = domain.SessionAborted
	session.FailureReason = reason
	session.EndedAt = time.Now()
	logger.Warn("orchestrator: session %s ABORTED: %s", session.ID, reason)
}

// publish archives a terminal session to the alert sink. Delivery is
// at-least-once: a failed publish is retried, then logged; the session
// outcome itself is never rolled back.
func (o *Orchestrator) publish(session *domain.ReasoningSession) {
	if o.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	operation := func() error {
		return o.sink.Publish(ctx, session)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx)); err != nil {
		logger.Warn("orchestrator: publish of session %s failed: %v", session.ID, err)
	}
}

// publishAborted records an event whose session never started.
func (o *Orchestrator) publishAborted(event domain.ChangeEvent, reason string) {
	session := &domain.ReasoningSession{
		ID:        uuid.New().String(),
		Trigger:   event,
		Status:    domain.SessionAborted,
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
	}
	session.FailureReason = reason
	o.publish(session)
}

func (o *Orchestrator) addActive(delta int) {
	o.mu.Lock()
	o.active += delta
	o.mu.Unlock()
}

// entitySet is a case-insensitive set of entity identifiers.
type entitySet struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func newEntitySet() *entitySet {
	return &entitySet{set: make(map[string]struct{})}
}

func (e *entitySet) add(entity string) {
	entity = strings.ToLower(strings.TrimSpace(entity))
	if entity == "" {
		return
	}
	e.mu.Lock()
	e.set[entity] = struct{}{}
	e.mu.Unlock()
}

func (e *entitySet) has(entity string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.set[strings.ToLower(strings.TrimSpace(entity))]
	return ok
}
