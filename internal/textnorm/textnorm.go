// Package textnorm folds the HTML entities and whitespace noise found in
// scraped attribute values and JSON-LD payloads into plain text.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&lt;", "<",
		"&gt;", ">",
	)
	entityPattern     = regexp.MustCompile(`(?i)&(amp|quot|#39|lt|gt);`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// DecodeEntities replaces the handful of entities scraped markup actually uses.
// Matching is case-insensitive so "&AMP;" decodes too.
func DecodeEntities(value string) string {
	return entityPattern.ReplaceAllStringFunc(value, func(match string) string {
		return entityReplacer.Replace(strings.ToLower(match))
	})
}

// Text decodes entities, folds literal "\n" escapes and whitespace runs into
// single spaces, and trims the result.
func Text(value string) string {
	if value == "" {
		return ""
	}
	value = DecodeEntities(value)
	value = strings.ReplaceAll(value, `\n`, " ")
	value = whitespacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
