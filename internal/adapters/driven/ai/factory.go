// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/helical-labs/medwatch/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/helical-labs/medwatch/internal/adapters/driven/embedding/openai"
	anthropicreason "github.com/helical-labs/medwatch/internal/adapters/driven/reasoning/anthropic"
	openaireason "github.com/helical-labs/medwatch/internal/adapters/driven/reasoning/openai"
	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and
// validates connectivity. Returns nil when embeddings are not configured.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateReasoningService creates a reasoning service and
// validates connectivity. Returns nil when reasoning is not configured,
// which runs the monitor in index-only mode.
func CreateAndValidateReasoningService(settings *domain.ReasoningSettings) (driven.ReasoningService, error) {
	svc, err := CreateReasoningService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReasoningUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrReasoningUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based
// on settings. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateReasoningService creates the appropriate reasoning service based
// on settings. Returns nil if the provider is not configured.
func CreateReasoningService(settings *domain.ReasoningSettings) (driven.ReasoningService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaireason.NewReasoningService(openaireason.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.StepTimeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicreason.NewReasoningService(anthropicreason.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.StepTimeout,
		})

	case domain.AIProviderOllama:
		// Tool-calling support across local models is too uneven to rely on
		// for safety decisions.
		return nil, fmt.Errorf("ollama is not supported for reasoning, use openai or anthropic")

	default:
		return nil, fmt.Errorf("unsupported reasoning provider: %s", settings.Provider)
	}
}
