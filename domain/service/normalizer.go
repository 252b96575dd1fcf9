// Package service implements the passage pipeline stages: normalization,
// semantic chunking, filtering and retrieval.
package service

import (
	"regexp"
	"strings"

	"github.com/helixml/passage/domain/passage"
)

var hyphenBreak = regexp.MustCompile(`([\p{L}\p{N}_]+)-\n([\p{L}\p{N}_]+)`)

var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "st",
	"ﬆ", "st",
)

// Normalize repairs extraction artifacts: words hyphenated across a line
// wrap are joined and typographic ligatures are expanded to ASCII.
// Hyphen joins run before ligature expansion. Normalize is idempotent.
func Normalize(text string) string {
	// a match consumes the word after the break, so chained breaks
	// like "a-\nb-\nc" need more than one pass
	for {
		joined := hyphenBreak.ReplaceAllString(text, "${1}${2}")
		if joined == text {
			break
		}
		text = joined
	}
	return ligatures.Replace(text)
}

// NormalizePages applies Normalize to every page, preserving metadata.
func NormalizePages(pages []passage.Page) []passage.Page {
	out := make([]passage.Page, len(pages))
	for i, p := range pages {
		out[i] = p.WithText(Normalize(p.Text()))
	}
	return out
}
