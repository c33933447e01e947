package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

func TestStatusCmd_ShowsConfigurationAndActivity(t *testing.T) {
	writeConfig(t, `
[[sources]]
id = "fda"
kind = "filesystem"
config = { path = "/tmp/fda" }

[embedding]
provider = "ollama"
model = "nomic-embed-text"
`)
	sink := &stubSink{sessions: []domain.ReasoningSession{
		completedSession("sess-1"),
		{ID: "sess-2", Status: domain.SessionFailed, FailureReason: "step-budget-exceeded"},
	}}
	injectSink(t, sink)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Sources: 1 configured")
	assert.Contains(t, out, "Embedding: ollama (nomic-embed-text)")
	assert.Contains(t, out, "Reasoning: not configured")
	assert.Contains(t, out, "1 completed, 1 failed, 0 aborted")
}
