package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

const sampleConfig = `
[[sources]]
id = "fda-advisories"
kind = "filesystem"
name = "FDA advisories mirror"
poll_interval = "30s"
trigger_worthy = true
priority = 10
config = { path = "/var/lib/medwatch/fda", glob = "*.txt" }

[[sources]]
id = "vendor-page"
kind = "webpage"
poll_interval = "2s"
config = { url = "https://example.com/advisories" }

[embedding]
provider = "ollama"
model = "nomic-embed-text"

[reasoning]
provider = "openai"
model = "gpt-4o-mini"
api_key = "sk-test"
step_timeout = "90s"

[pipeline]
step_budget = 6
records_path = "/var/lib/medwatch/records.json"
`

func TestParse(t *testing.T) {
	t.Run("full config decodes with defaults applied", func(t *testing.T) {
		cfg, err := Parse([]byte(sampleConfig))
		require.NoError(t, err)

		require.Len(t, cfg.Sources, 2)
		assert.Equal(t, "fda-advisories", cfg.Sources[0].ID)
		assert.Equal(t, "filesystem", cfg.Sources[0].Kind)
		assert.True(t, cfg.Sources[0].TriggerWorthy)
		assert.Equal(t, 10, cfg.Sources[0].Priority)
		assert.Equal(t, "/var/lib/medwatch/fda", cfg.Sources[0].Config["path"])
		assert.Equal(t, 30*time.Second, cfg.Sources[0].EffectiveInterval())

		// Below the floor, clamped at use.
		assert.Equal(t, domain.MinPollInterval, cfg.Sources[1].EffectiveInterval())

		assert.Equal(t, domain.AIProviderOllama, cfg.Embedding.Provider)
		assert.Equal(t, 90*time.Second, cfg.Reasoning.StepTimeout)

		assert.Equal(t, 6, cfg.Pipeline.StepBudget)
		assert.Equal(t, 4, cfg.Pipeline.MaxConcurrentSessions)
		assert.Equal(t, 10*time.Second, cfg.Pipeline.ShutdownGrace)
	})

	t.Run("empty config is valid", func(t *testing.T) {
		cfg, err := Parse([]byte(""))
		require.NoError(t, err)
		assert.Empty(t, cfg.Sources)
		assert.False(t, cfg.Embedding.IsConfigured())
		assert.False(t, cfg.Reasoning.IsConfigured())
	})

	t.Run("source without id is rejected", func(t *testing.T) {
		_, err := Parse([]byte("[[sources]]\nkind = \"filesystem\"\n"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate source ids are rejected", func(t *testing.T) {
		_, err := Parse([]byte(`
[[sources]]
id = "a"
kind = "filesystem"

[[sources]]
id = "a"
kind = "webpage"
`))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("unknown source kind is rejected", func(t *testing.T) {
		_, err := Parse([]byte("[[sources]]\nid = \"a\"\nkind = \"carrier-pigeon\"\n"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		_, err := Parse([]byte("[embedding]\nprovider = \"mystery\"\n"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := Parse([]byte("[pipeline]\nstep_budgt = 6\n"))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "unknown config keys")
	})

	t.Run("malformed toml is rejected", func(t *testing.T) {
		_, err := Parse([]byte("not toml ==="))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads config from disk", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, cfg.Sources, 2)
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}
