package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Drug Safety Updates</title></head>
<body>
<nav><a href="/home">Home</a> | <a href="/about">About</a></nav>
<article>
<h1>Drug-X Recall Notice</h1>
<p>Drug-X lots 100-200 have been recalled due to contamination. Patients
currently taking Drug-X should contact their prescriber immediately. The
recall affects distribution in all regions and follows three adverse event
reports filed this quarter.</p>
<p>Pharmacies must quarantine remaining stock and await disposal
instructions from the distributor.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestNormaliser_Extract(t *testing.T) {
	n := New()

	t.Run("extracts article content", func(t *testing.T) {
		result, err := n.Extract([]byte(samplePage), "https://example.org/recalls")

		require.NoError(t, err)
		assert.Contains(t, result.Markdown, "Drug-X lots 100-200 have been recalled")
		assert.Contains(t, result.Markdown, "quarantine remaining stock")
	})

	t.Run("drops navigation boilerplate", func(t *testing.T) {
		result, err := n.Extract([]byte(samplePage), "https://example.org/recalls")

		require.NoError(t, err)
		assert.NotContains(t, result.Markdown, "Home")
	})

	t.Run("falls back on sparse pages", func(t *testing.T) {
		result, err := n.Extract([]byte("<p>tiny</p>"), "")

		require.NoError(t, err)
		assert.Contains(t, result.Markdown, "tiny")
	})

	t.Run("empty page URL is accepted", func(t *testing.T) {
		_, err := n.Extract([]byte(samplePage), "")
		require.NoError(t, err)
	})
}
