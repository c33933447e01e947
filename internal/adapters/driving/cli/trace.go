package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var traceJSON bool

var traceCmd = &cobra.Command{
	Use:   "trace [session-id]",
	Short: "Print a session's reasoning trace",
	Long: `Prints the full audit trace of an archived reasoning session: every
retrieval, tool call and the final decision, in order.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().BoolVar(&traceJSON, "json", false, "output the session as JSON")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	sink, release, err := openAlertSink()
	if err != nil {
		return err
	}
	defer release()

	session, err := sink.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading session %s: %w", args[0], err)
	}

	if traceJSON {
		return outputSessionJSON(cmd, session)
	}

	printSession(cmd, session)
	return nil
}
