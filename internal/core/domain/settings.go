package domain

import "time"

// AIProvider identifies an AI service provider for embeddings or reasoning.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingSettings configures the embedding capability.
type EmbeddingSettings struct {
	// Provider selects the adapter ("ollama", "openai").
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// APIKey authenticates cloud providers. Ignored for local providers.
	APIKey string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Dimensions is the vector size; model-dependent.
	Dimensions int

	// MaxRetries bounds embedding retry attempts (default 3).
	MaxRetries int
}

// IsConfigured returns true when the settings name a provider.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// ReasoningSettings configures the reasoning capability.
type ReasoningSettings struct {
	// Provider selects the adapter ("openai", "anthropic").
	Provider AIProvider

	// Model is the model name.
	Model string

	// APIKey authenticates cloud providers.
	APIKey string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// MaxRetries bounds capability retry attempts per step (default 2).
	MaxRetries int

	// StepTimeout bounds a single capability call (default 60s).
	StepTimeout time.Duration
}

// IsConfigured returns true when the settings name a provider.
func (s *ReasoningSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// PipelineSettings configures the ingestion pipeline and orchestrator.
type PipelineSettings struct {
	// StepBudget caps reasoning steps per session (default 8).
	StepBudget int

	// MaxConcurrentSessions bounds the session worker pool (default 4).
	MaxConcurrentSessions int

	// ShutdownGrace bounds how long in-flight work may run after a stop
	// signal before sessions are forcibly aborted (default 10s).
	ShutdownGrace time.Duration

	// RecordsPath points at the clinical records file used by the built-in
	// tools.
	RecordsPath string
}

// Config is the full startup configuration.
type Config struct {
	Sources   []Source
	Embedding EmbeddingSettings
	Reasoning ReasoningSettings
	Pipeline  PipelineSettings
}

// Defaulted returns a copy of the pipeline settings with defaults applied.
func (p PipelineSettings) Defaulted() PipelineSettings {
	if p.StepBudget <= 0 {
		p.StepBudget = 8
	}
	if p.MaxConcurrentSessions <= 0 {
		p.MaxConcurrentSessions = 4
	}
	if p.ShutdownGrace <= 0 {
		p.ShutdownGrace = 10 * time.Second
	}
	return p
}
