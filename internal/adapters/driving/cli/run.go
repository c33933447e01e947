package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helical-labs/medwatch/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the monitor",
	Long: `Starts the ingestion pipeline and reasoning orchestrator and blocks
until interrupted. Each configured source is polled on its own schedule;
trigger-worthy changes start reasoning sessions whose decisions land in
the alert log.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.close()

	if len(s.cfg.Sources) == 0 {
		return errors.New("no sources configured")
	}

	for _, src := range s.cfg.Sources {
		mode := "index-only"
		if src.TriggerWorthy && s.orchestrator != nil {
			mode = "trigger"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "source %s (%s) every %s [%s]\n",
			src.ID, src.Kind, src.EffectiveInterval(), mode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Section("monitor")
	err = s.pipeline.Run(ctx)

	// Pipeline is down; give in-flight sessions their grace period.
	if s.orchestrator != nil {
		if shutdownErr := s.orchestrator.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("orchestrator shutdown: %v", shutdownErr)
		}
	}

	printFinalStats(cmd, s)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printFinalStats(cmd *cobra.Command, s *stack) {
	status, err := s.pipeline.Status(context.Background())
	if err != nil {
		return
	}
	cmd.Println()
	for _, st := range status.Sources {
		cmd.Printf("  %s: %d polls, %d changes, %d failures\n",
			st.SourceID, st.Polls, st.Changes, st.Failures)
	}
}
