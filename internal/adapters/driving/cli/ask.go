package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run a one-shot reasoning session",
	Long: `Polls every configured source once to populate the index, then runs a
single reasoning session for the query and prints the decision with its
full trace. The session is archived in the alert log like any other.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the session as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.close()

	if s.orchestrator == nil {
		return errors.New("reasoning not configured; set [reasoning] in the config")
	}

	ctx := cmd.Context()
	if err := s.primeOnce(ctx); err != nil {
		return fmt.Errorf("priming index: %w", err)
	}

	session, err := s.orchestrator.Ask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputSessionJSON(cmd, session)
	}

	printSession(cmd, session)
	return nil
}

func outputSessionJSON(cmd *cobra.Command, session *domain.ReasoningSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSession(cmd *cobra.Command, session *domain.ReasoningSession) {
	cmd.Printf("Session %s [%s]\n", session.ID, session.Status)
	if session.Trigger.ItemID != "" {
		cmd.Printf("Trigger: %s (%s)\n", session.Trigger.ItemID, session.Trigger.Kind)
	}
	cmd.Println()

	for _, step := range session.Steps {
		label := step.Kind.String()
		if step.Tool != "" {
			label = fmt.Sprintf("%s %s", label, step.Tool)
		}
		cmd.Printf("  [%d] %s\n", step.Number, label)
		if step.Input != "" {
			cmd.Printf("      in:  %s\n", firstLine(step.Input))
		}
		if step.Output != "" {
			cmd.Printf("      out: %s\n", firstLine(step.Output))
		}
	}
	cmd.Println()

	switch session.Status {
	case domain.SessionCompleted:
		printDecision(cmd, session.Result)
	case domain.SessionFailed, domain.SessionAborted:
		cmd.Printf("Reason: %s\n", session.FailureReason)
	}
}

func printDecision(cmd *cobra.Command, decision *domain.Decision) {
	if decision == nil {
		return
	}
	cmd.Printf("Safety score: %d/100\n", decision.SafetyScore)
	cmd.Printf("Summary: %s\n", decision.Summary)
	for _, alert := range decision.Alerts {
		cmd.Printf("  [%s] %s\n", alert.Severity, alert.Title)
		if alert.Description != "" {
			cmd.Printf("    %s\n", alert.Description)
		}
		if len(alert.AffectedEntities) > 0 {
			cmd.Printf("    entities: %v\n", alert.AffectedEntities)
		}
	}
}

// firstLine truncates multi-line step payloads for the trace listing.
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " …"
		}
		if i > 120 {
			return s[:i] + "…"
		}
	}
	return s
}
