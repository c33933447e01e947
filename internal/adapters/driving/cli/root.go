// Package cli provides the medwatch command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/helical-labs/medwatch/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	dataDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "medwatch",
	Short: "Continuous clinical-safety document monitor",
	Long: `Medwatch watches configured document sources (regulatory mirrors,
vendor advisory pages, local document drops), detects content changes,
maintains a semantic index, and runs bounded reasoning sessions over
trigger-worthy changes to produce clinical-safety alerts.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.medwatch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.medwatch/data)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
