// Package reasoning holds the wire-level decision format shared by the
// reasoning service adapters. Providers differ in transport; the final
// decision payload they are asked to produce is the same JSON shape.
package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// SystemPrompt instructs the model on its role and output contract.
const SystemPrompt = `You are a clinical document safety monitor. You are given a change in a
monitored document plus retrieved context, and you may call the provided
tools to inspect patient records and drug interactions.

When you have enough information, respond with ONLY a JSON object:
{
  "safety_score": <0-100, 100 = no concern>,
  "summary": "<one paragraph>",
  "alerts": [
    {
      "severity": "info|low|medium|high|critical",
      "title": "<short title>",
      "description": "<evidence>",
      "affected_entities": ["<entity named in the retrieved context or a tool result>"]
    }
  ]
}
Only reference entities that appeared in the retrieved context or in a
tool result. If nothing is concerning, return a high safety_score and an
empty alerts list.`

// wireDecision is the JSON shape the model is asked to produce.
type wireDecision struct {
	SafetyScore *int        `json:"safety_score"`
	Summary     string      `json:"summary"`
	Alerts      []wireAlert `json:"alerts"`
}

type wireAlert struct {
	Severity         string   `json:"severity"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	AffectedEntities []string `json:"affected_entities"`
}

// ParseDecision parses a model's final text output into a decision.
// Code fences around the JSON are tolerated; anything unparseable yields
// ErrMalformedDecision.
func ParseDecision(content string) (*domain.Decision, error) {
	content = stripFences(strings.TrimSpace(content))
	if content == "" {
		return nil, fmt.Errorf("%w: empty decision output", domain.ErrMalformedDecision)
	}

	var wire wireDecision
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDecision, err)
	}
	if wire.SafetyScore == nil {
		return nil, fmt.Errorf("%w: safety_score is required", domain.ErrMalformedDecision)
	}

	decision := &domain.Decision{
		SafetyScore: *wire.SafetyScore,
		Summary:     strings.TrimSpace(wire.Summary),
	}
	for _, alert := range wire.Alerts {
		decision.Alerts = append(decision.Alerts, domain.Alert{
			Severity:         domain.ParseSeverity(strings.ToLower(alert.Severity)),
			Title:            strings.TrimSpace(alert.Title),
			Description:      strings.TrimSpace(alert.Description),
			AffectedEntities: alert.AffectedEntities,
		})
	}
	return decision, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
