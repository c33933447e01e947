// Package anthropic provides a reasoning service adapter using the
// Anthropic messages API with tool use.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helical-labs/medwatch/internal/adapters/driven/reasoning"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

// Ensure ReasoningService implements the interface.
var _ driven.ReasoningService = (*ReasoningService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 120 * time.Second
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 2048
)

// Config holds configuration for the Anthropic reasoning service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com/v1).
	BaseURL string

	// Model is the model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ReasoningService runs inference steps against the Anthropic API.
type ReasoningService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /messages request format.
type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
	Tools     []toolDef     `json:"tools,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// messagesResponse is the Anthropic /messages response format.
type messagesResponse struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text,omitempty"`
		Name  string         `json:"name,omitempty"`
		Input map[string]any `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewReasoningService creates a new Anthropic reasoning service.
func NewReasoningService(cfg Config) (*ReasoningService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ReasoningService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Infer runs one reasoning step against the messages API.
func (s *ReasoningService) Infer(ctx context.Context, req driven.InferRequest) (*driven.InferResult, error) {
	messages := make([]chatMessage, 0, len(req.Context))
	for _, entry := range req.Context {
		messages = append(messages, chatMessage{
			Role:    "user",
			Content: fmt.Sprintf("[%s:%s] %s", entry.Role, entry.Label, entry.Content),
		})
	}

	tools := make([]toolDef, 0, len(req.Tools))
	for _, sig := range req.Tools {
		tools = append(tools, toolDef{
			Name:        sig.Name,
			Description: sig.Description,
			InputSchema: sig.InputSchema,
		})
	}

	jsonBody, err := json.Marshal(messagesRequest{
		Model:     s.model,
		MaxTokens: defaultMaxTokens,
		System:    reasoning.SystemPrompt,
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msgResp.Error != nil {
		return nil, fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, string(body))
	}

	var text string
	for _, block := range msgResp.Content {
		switch block.Type {
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			return &driven.InferResult{
				ToolCall: &driven.ToolCallRequest{Name: block.Name, Arguments: args},
			}, nil
		case "text":
			text += block.Text
		}
	}

	decision, err := reasoning.ParseDecision(text)
	if err != nil {
		return nil, err
	}
	return &driven.InferResult{Decision: decision}, nil
}

// ModelName returns the name of the model being used.
func (s *ReasoningService) ModelName() string {
	return s.model
}

// Ping validates the API key with a minimal request. Anthropic has no
// free list endpoint, so this sends a one-token message.
func (s *ReasoningService) Ping(ctx context.Context) error {
	jsonBody, err := json.Marshal(messagesRequest{
		Model:     s.model,
		MaxTokens: 1,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		return fmt.Errorf("anthropic: marshal ping request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *ReasoningService) Close() error {
	return nil
}
