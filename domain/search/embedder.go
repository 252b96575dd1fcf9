// Package search holds the similarity primitives shared by chunking and retrieval.
package search

import "context"

// TextEmbedder converts text into embedding vectors.
type TextEmbedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}
