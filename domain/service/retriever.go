package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/domain/search"
)

// DefaultTopK is the number of passages returned when no k is given.
const DefaultTopK = 3

// MaxTopK bounds k on the CLI, HTTP and MCP surfaces.
const MaxTopK = 10

// RetrieveConfig holds per-query retrieval settings.
type RetrieveConfig struct {
	minSimilarity    float64
	hasMinSimilarity bool
}

// NewRetrieveConfig applies options.
func NewRetrieveConfig(opts ...RetrieveOption) RetrieveConfig {
	var cfg RetrieveConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// MinSimilarity returns the threshold, if one is set.
func (c RetrieveConfig) MinSimilarity() (float64, bool) {
	return c.minSimilarity, c.hasMinSimilarity
}

// RetrieveOption configures a retrieval.
type RetrieveOption func(*RetrieveConfig)

// WithMinSimilarity drops results scoring below the threshold.
func WithMinSimilarity(threshold float64) RetrieveOption {
	return func(c *RetrieveConfig) {
		c.minSimilarity = threshold
		c.hasMinSimilarity = true
	}
}

// Retriever ranks every stored chunk against a query by cosine similarity.
type Retriever struct {
	store    passage.Store
	embedder search.TextEmbedder
}

// NewRetriever creates a new Retriever.
func NewRetriever(store passage.Store, embedder search.TextEmbedder) (*Retriever, error) {
	if store == nil {
		return nil, errors.New("NewRetriever: nil store")
	}
	if embedder == nil {
		return nil, errors.New("NewRetriever: nil embedder")
	}
	return &Retriever{store: store, embedder: embedder}, nil
}

// Retrieve embeds the query once, scores every stored chunk and returns at
// most k results ordered by similarity descending, ties by ascending id.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, opts ...RetrieveOption) ([]passage.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, passage.ErrEmptyQuery
	}
	if k <= 0 {
		return []passage.Result{}, nil
	}
	cfg := NewRetrieveConfig(opts...)
	threshold, gated := cfg.MinSimilarity()

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", passage.ErrQueryEmbeddingFailed, err)
	}

	// best holds at most k results in ranking order
	best := make([]passage.Result, 0, k)
	for stored, err := range r.store.Scan(ctx) {
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if len(stored.Embedding()) != len(vector) {
			return nil, fmt.Errorf("chunk %d has %d dimensions, query has %d: %w",
				stored.ID(), len(stored.Embedding()), len(vector), passage.ErrDimensionMismatch)
		}

		sim := search.CosineSimilarity(vector, stored.Embedding())
		if gated && sim < threshold {
			continue
		}
		candidate := search.NewMatch(stored.ID(), sim)
		if len(best) == k && compareResult(candidate, best[k-1]) >= 0 {
			continue
		}
		pos, _ := slices.BinarySearchFunc(best, candidate, func(e passage.Result, t search.Match) int {
			return -compareResult(t, e)
		})
		result := passage.NewResult(stored.ID(), stored.Text(), stored.Metadata(), sim)
		best = slices.Insert(best, pos, result)
		if len(best) > k {
			best = best[:k]
		}
	}
	return best, nil
}

func compareResult(m search.Match, r passage.Result) int {
	return search.CompareMatches(m, search.NewMatch(r.ID(), r.Similarity()))
}

// Context joins result texts in rank order with the separator passed to
// answer generators.
func Context(results []passage.Result) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text()
	}
	return strings.Join(texts, ContextSeparator)
}

// ContextSeparator separates passages in an answer context.
const ContextSeparator = "\n\n---\n\n"
