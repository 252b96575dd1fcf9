package service

import (
	"unicode/utf8"

	"github.com/helixml/passage/domain/passage"
)

// DefaultMinChunkLength is the minimum chunk length, in code points, kept by Filter.
const DefaultMinChunkLength = 50

// Filter keeps chunks whose text holds at least minLength code points.
// Order is preserved; nothing is merged.
func Filter(chunks []passage.Chunk, minLength int) []passage.Chunk {
	kept := make([]passage.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text()) >= minLength {
			kept = append(kept, c)
		}
	}
	return kept
}
