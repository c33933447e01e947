package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

var (
	alertsLimit int
	alertsJSON  bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent decisions",
	Long: `Lists the most recent terminal reasoning sessions from the alert log,
newest first, with their safety score and highest alert severity.`,
	RunE: runAlerts,
}

func init() {
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 10, "maximum number of sessions")
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "output sessions as JSON")
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	sink, release, err := openAlertSink()
	if err != nil {
		return err
	}
	defer release()

	sessions, err := sink.Recent(cmd.Context(), alertsLimit)
	if err != nil {
		return fmt.Errorf("listing alerts: %w", err)
	}

	if alertsJSON {
		data, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sessions: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions recorded.")
		return nil
	}

	for i := range sessions {
		printSessionLine(cmd, &sessions[i])
	}
	return nil
}

func printSessionLine(cmd *cobra.Command, session *domain.ReasoningSession) {
	cmd.Printf("%s  %s  %-9s", session.ID, session.EndedAt.Format("2006-01-02 15:04:05"), session.Status)

	if session.Result != nil {
		cmd.Printf("  score=%-3d alerts=%d", session.Result.SafetyScore, len(session.Result.Alerts))
		if len(session.Result.Alerts) > 0 {
			cmd.Printf(" max=%s", session.Result.MaxSeverity())
		}
	} else if session.FailureReason != "" {
		cmd.Printf("  %s", session.FailureReason)
	}

	if session.Trigger.ItemID != "" {
		cmd.Printf("  %s", session.Trigger.ItemID)
	}
	cmd.Println()
}
