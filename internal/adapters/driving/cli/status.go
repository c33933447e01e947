package cli

import (
	"github.com/spf13/cobra"

	configfile "github.com/helical-labs/medwatch/internal/adapters/driven/config/file"
	"github.com/helical-labs/medwatch/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor configuration and recent activity",
	Long: `Shows the configured sources and AI capabilities, plus a summary of
the most recent reasoning sessions from the alert log.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := configfile.Load(cfgPath)
	if err != nil {
		return err
	}

	cmd.Printf("Sources: %d configured\n", len(cfg.Sources))
	for _, src := range cfg.Sources {
		cmd.Printf("  %s (%s) every %s\n", src.ID, src.Kind, src.EffectiveInterval())
	}

	cmd.Printf("Embedding: %s\n", providerLabel(cfg.Embedding.Provider, cfg.Embedding.Model))
	cmd.Printf("Reasoning: %s\n", providerLabel(cfg.Reasoning.Provider, cfg.Reasoning.Model))

	sink, release, err := openAlertSink()
	if err != nil {
		return err
	}
	defer release()

	sessions, err := sink.Recent(cmd.Context(), 50)
	if err != nil {
		return err
	}

	var completed, failed, aborted int
	for i := range sessions {
		switch sessions[i].Status {
		case domain.SessionCompleted:
			completed++
		case domain.SessionFailed:
			failed++
		case domain.SessionAborted:
			aborted++
		}
	}
	cmd.Printf("Recent sessions: %d completed, %d failed, %d aborted\n", completed, failed, aborted)
	return nil
}

func providerLabel(provider domain.AIProvider, model string) string {
	if provider == "" {
		return "not configured"
	}
	if model == "" {
		return provider.String()
	}
	return provider.String() + " (" + model + ")"
}
