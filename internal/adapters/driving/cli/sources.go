package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/helical-labs/medwatch/internal/adapters/driven/config/file"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE:  runSources,
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output sources as JSON")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	cfg, err := configfile.Load(cfgPath)
	if err != nil {
		return err
	}

	if sourcesJSON {
		data, err := json.MarshalIndent(cfg.Sources, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(cfg.Sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	for _, src := range cfg.Sources {
		name := src.Name
		if name == "" {
			name = src.ID
		}
		mode := "index-only"
		if src.TriggerWorthy {
			mode = "trigger"
		}
		cmd.Printf("  %s (%s)\n", name, src.Kind)
		cmd.Printf("      id: %s  every: %s  mode: %s  priority: %d\n",
			src.ID, src.EffectiveInterval(), mode, src.Priority)
	}
	return nil
}
