package provider

import (
	"context"
	"fmt"

	"github.com/helixml/passage/domain/search"
	"golang.org/x/sync/errgroup"
)

// Batching defaults.
const (
	DefaultBatchSize     = 10
	DefaultParallelTasks = 1
)

// BatchEmbedder adapts an Embedder to search.TextEmbedder. Inputs are split
// into fixed-size requests, at most parallel of which are in flight.
type BatchEmbedder struct {
	embedder  Embedder
	batchSize int
	parallel  int
}

// NewBatchEmbedder creates a BatchEmbedder. Non-positive sizes select the defaults.
func NewBatchEmbedder(embedder Embedder, batchSize, parallel int) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if parallel <= 0 {
		parallel = DefaultParallelTasks
	}
	return &BatchEmbedder{
		embedder:  embedder,
		batchSize: batchSize,
		parallel:  parallel,
	}
}

// Embed returns the embedding for one text.
func (b *BatchEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per text in input order. The first failing
// request cancels the rest.
func (b *BatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallel)

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		g.Go(func() error {
			resp, err := b.embedder.Embed(gctx, NewEmbeddingRequest(texts[start:end]))
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			vectors := resp.Embeddings()
			if len(vectors) != end-start {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(vectors))
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ search.TextEmbedder = (*BatchEmbedder)(nil)
