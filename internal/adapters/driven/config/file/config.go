// Package file loads the medwatch startup configuration from a TOML file.
// Configuration is read once at startup; sources are immutable for the
// lifetime of a run.
package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// duration decodes TOML duration strings ("30s", "2m"). go-toml has no
// native time.Duration support.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Wire representation of the config file. Kept separate from the domain
// types so the file format can evolve without touching the core.
type fileConfig struct {
	Sources   []sourceConfig  `toml:"sources"`
	Embedding embeddingConfig `toml:"embedding"`
	Reasoning reasoningConfig `toml:"reasoning"`
	Pipeline  pipelineConfig  `toml:"pipeline"`
}

type sourceConfig struct {
	ID            string            `toml:"id"`
	Kind          string            `toml:"kind"`
	Name          string            `toml:"name"`
	PollInterval  duration          `toml:"poll_interval"`
	TriggerWorthy bool              `toml:"trigger_worthy"`
	Priority      int               `toml:"priority"`
	Config        map[string]string `toml:"config"`
}

type embeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Dimensions int    `toml:"dimensions"`
	MaxRetries int    `toml:"max_retries"`
}

type reasoningConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	MaxRetries  int      `toml:"max_retries"`
	StepTimeout duration `toml:"step_timeout"`
}

type pipelineConfig struct {
	StepBudget            int      `toml:"step_budget"`
	MaxConcurrentSessions int      `toml:"max_concurrent_sessions"`
	ShutdownGrace         duration `toml:"shutdown_grace"`
	RecordsPath           string   `toml:"records_path"`
}

// DefaultPath returns the default config file location, ~/.medwatch/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".medwatch", "config.toml"), nil
}

// Load reads and validates the configuration at path. If path is empty the
// default location is used.
func Load(path string) (*domain.Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates TOML configuration bytes.
func Parse(data []byte) (*domain.Config, error) {
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: unknown config keys:\n%s", domain.ErrInvalidInput, strict.String())
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	cfg := toDomain(&fc)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	cfg.Pipeline = cfg.Pipeline.Defaulted()
	return cfg, nil
}

func toDomain(fc *fileConfig) *domain.Config {
	cfg := &domain.Config{
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProvider(fc.Embedding.Provider),
			Model:      fc.Embedding.Model,
			APIKey:     fc.Embedding.APIKey,
			BaseURL:    fc.Embedding.BaseURL,
			Dimensions: fc.Embedding.Dimensions,
			MaxRetries: fc.Embedding.MaxRetries,
		},
		Reasoning: domain.ReasoningSettings{
			Provider:    domain.AIProvider(fc.Reasoning.Provider),
			Model:       fc.Reasoning.Model,
			APIKey:      fc.Reasoning.APIKey,
			BaseURL:     fc.Reasoning.BaseURL,
			MaxRetries:  fc.Reasoning.MaxRetries,
			StepTimeout: time.Duration(fc.Reasoning.StepTimeout),
		},
		Pipeline: domain.PipelineSettings{
			StepBudget:            fc.Pipeline.StepBudget,
			MaxConcurrentSessions: fc.Pipeline.MaxConcurrentSessions,
			ShutdownGrace:         time.Duration(fc.Pipeline.ShutdownGrace),
			RecordsPath:           fc.Pipeline.RecordsPath,
		},
	}

	for _, s := range fc.Sources {
		cfg.Sources = append(cfg.Sources, domain.Source{
			ID:            s.ID,
			Kind:          s.Kind,
			Name:          s.Name,
			PollInterval:  time.Duration(s.PollInterval),
			TriggerWorthy: s.TriggerWorthy,
			Priority:      s.Priority,
			Config:        s.Config,
		})
	}

	return cfg
}

func validate(cfg *domain.Config) error {
	seen := make(map[string]struct{}, len(cfg.Sources))
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.ID == "" {
			return fmt.Errorf("%w: sources[%d] has no id", domain.ErrInvalidInput, i)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("%w: duplicate source id %q", domain.ErrInvalidInput, src.ID)
		}
		seen[src.ID] = struct{}{}

		switch src.Kind {
		case "filesystem", "webpage":
		case "":
			return fmt.Errorf("%w: source %q has no kind", domain.ErrInvalidInput, src.ID)
		default:
			return fmt.Errorf("%w: source %q kind %q", domain.ErrUnsupportedKind, src.ID, src.Kind)
		}
	}

	if cfg.Embedding.IsConfigured() && !cfg.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, cfg.Embedding.Provider)
	}
	if cfg.Reasoning.IsConfigured() && !cfg.Reasoning.Provider.IsValid() {
		return fmt.Errorf("%w: reasoning provider %q", domain.ErrInvalidInput, cfg.Reasoning.Provider)
	}

	return nil
}
