// Package html extracts readable text from fetched web pages.
// Readability isolates the main article content, dropping navigation and
// boilerplate that would otherwise register as spurious deltas; the
// result is converted to markdown for indexing.
package html

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"

	"github.com/helical-labs/medwatch/internal/normalisers/plaintext"
)

// Result is the outcome of extracting a web page.
type Result struct {
	// Title is the page or article title.
	Title string

	// Markdown is the extracted content as normalised markdown.
	Markdown string
}

// Normaliser converts fetched HTML pages to markdown.
type Normaliser struct {
	converter *md.Converter
}

// New creates a new HTML normaliser.
func New() *Normaliser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Normaliser{converter: converter}
}

// Extract pulls the readable content out of an HTML page.
// pageURL resolves relative links; it may be empty.
func (n *Normaliser) Extract(content []byte, pageURL string) (*Result, error) {
	var base *url.URL
	if pageURL != "" {
		if parsed, err := url.Parse(pageURL); err == nil {
			base = parsed
		}
	}

	title := ""
	body := content

	article, err := readability.FromReader(bytes.NewReader(content), base)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		title = article.Title
		body = []byte(article.Content)
	}
	// Readability gives up on sparse pages; fall through with the raw
	// document in that case.

	markdown, err := n.converter.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	return &Result{
		Title:    title,
		Markdown: plaintext.Normalise(markdown),
	}, nil
}
