package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSourcesConfig = `
[[sources]]
id = "fda"
kind = "filesystem"
name = "FDA mirror"
trigger_worthy = true
priority = 10
config = { path = "/tmp/fda" }

[[sources]]
id = "vendor"
kind = "webpage"
config = { url = "https://example.com/advisories" }
`

func TestSourcesCmd_ListsConfiguredSources(t *testing.T) {
	writeConfig(t, testSourcesConfig)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "FDA mirror (filesystem)")
	assert.Contains(t, out, "mode: trigger")
	assert.Contains(t, out, "vendor (webpage)")
	assert.Contains(t, out, "mode: index-only")
}

func TestSourcesCmd_EmptyConfig(t *testing.T) {
	writeConfig(t, "")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No sources configured.")
}

func TestSourcesCmd_JSONOutput(t *testing.T) {
	writeConfig(t, testSourcesConfig)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sources", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		sourcesJSON = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"ID\"")
	assert.Contains(t, buf.String(), "fda")
}

func TestSourcesCmd_InvalidConfig(t *testing.T) {
	writeConfig(t, "[[sources]]\nkind = \"filesystem\"\n")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
}
