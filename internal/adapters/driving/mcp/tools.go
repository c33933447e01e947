package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query   string   `json:"query" jsonschema:"the semantic query to match documents against"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of snippets to return (default 5)"`
	Sources []string `json:"sources,omitempty" jsonschema:"restrict results to these source IDs"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Snippets []SnippetOutput `json:"snippets"`
	Count    int             `json:"count"`
}

// SnippetOutput represents a single retrieval snippet.
type SnippetOutput struct {
	ItemID    string  `json:"item_id"`
	SourceID  string  `json:"source_id"`
	Title     string  `json:"title"`
	Text      string  `json:"text"`
	Truncated bool    `json:"truncated,omitempty"`
	Score     float64 `json:"score"`
	UpdatedAt string  `json:"updated_at"`
}

// ListAlertsInput is the input schema for the list_alerts tool.
type ListAlertsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of sessions to return (default 10)"`
}

// ListAlertsOutput is the output schema for the list_alerts tool.
type ListAlertsOutput struct {
	Sessions []SessionOutput `json:"sessions"`
	Count    int             `json:"count"`
}

// SessionOutput summarises one archived reasoning session.
type SessionOutput struct {
	SessionID     string        `json:"session_id"`
	Status        string        `json:"status"`
	TriggerItemID string        `json:"trigger_item_id,omitempty"`
	EndedAt       string        `json:"ended_at"`
	SafetyScore   *int          `json:"safety_score,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	Alerts        []AlertOutput `json:"alerts,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// AlertOutput represents a single alert within a decision.
type AlertOutput struct {
	Severity    string   `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Entities    []string `json:"entities,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Semantic retrieval over the monitored document corpus",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_alerts",
		Description: "List recent clinical-safety decisions with their alerts",
	}, s.handleListAlerts)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := domain.RetrieveOptions{
		Limit:     input.Limit,
		SourceIDs: input.Sources,
	}

	snippets, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Snippets: make([]SnippetOutput, len(snippets)),
		Count:    len(snippets),
	}

	for i := range snippets {
		output.Snippets[i] = SnippetOutput{
			ItemID:    snippets[i].ItemID,
			SourceID:  snippets[i].SourceID,
			Title:     snippets[i].Title,
			Text:      snippets[i].Text,
			Truncated: snippets[i].Truncated,
			Score:     snippets[i].Score,
			UpdatedAt: snippets[i].UpdatedAt.Format(time.RFC3339),
		}
	}

	return nil, output, nil
}

// handleListAlerts handles the list_alerts tool invocation.
func (s *Server) handleListAlerts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListAlertsInput,
) (*mcp.CallToolResult, ListAlertsOutput, error) {
	if s.ports.Alerts == nil {
		return nil, ListAlertsOutput{Sessions: []SessionOutput{}}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	sessions, err := s.ports.Alerts.Recent(ctx, limit)
	if err != nil {
		return nil, ListAlertsOutput{}, err
	}

	output := ListAlertsOutput{
		Sessions: make([]SessionOutput, len(sessions)),
		Count:    len(sessions),
	}
	for i := range sessions {
		output.Sessions[i] = sessionOutput(&sessions[i])
	}

	return nil, output, nil
}

func sessionOutput(session *domain.ReasoningSession) SessionOutput {
	out := SessionOutput{
		SessionID:     session.ID,
		Status:        session.Status.String(),
		TriggerItemID: session.Trigger.ItemID,
		EndedAt:       session.EndedAt.Format(time.RFC3339),
		FailureReason: session.FailureReason,
	}

	if session.Result != nil {
		score := session.Result.SafetyScore
		out.SafetyScore = &score
		out.Summary = session.Result.Summary
		out.Alerts = make([]AlertOutput, len(session.Result.Alerts))
		for i, alert := range session.Result.Alerts {
			out.Alerts[i] = AlertOutput{
				Severity:    alert.Severity.String(),
				Title:       alert.Title,
				Description: alert.Description,
				Entities:    alert.AffectedEntities,
			}
		}
	}

	return out
}
