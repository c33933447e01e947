// Package plaintext normalises plain text content for indexing and
// fingerprinting.
package plaintext

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Volatile line patterns: lines that change on every fetch without the
// content meaning changing. Matched case-insensitively against whole lines.
var volatilePatterns = []*regexp.Regexp{
	// "Last updated: 2026-08-30 12:00:01", "Generated at 12:00:01"
	regexp.MustCompile(`(?i)^\s*(last[- ]updated|generated|fetched|retrieved|rendered)( at| on)?\s*[:\-].*$`),
	// bare ISO-8601 timestamps on their own line
	regexp.MustCompile(`^\s*\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?\s*$`),
	// cache-buster style comments
	regexp.MustCompile(`(?i)^\s*<!--.*(timestamp|build|cache).*-->\s*$`),
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Normalise cleans text content: normalises line endings, trims trailing
// whitespace per line and collapses blank-line runs.
func Normalise(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	content = blankRunRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// Canonicalise prepares text for fingerprinting: Normalise plus removal of
// volatile lines. Two fetches of semantically equal content must
// canonicalise identically.
func Canonicalise(content string) string {
	content = Normalise(content)

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isVolatile(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// isVolatile reports whether a line matches a volatile pattern.
func isVolatile(line string) bool {
	for _, re := range volatilePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// TitleFromPath derives a human-readable title from a file path.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)

	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
