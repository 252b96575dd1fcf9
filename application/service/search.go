package service

import (
	"context"
	"log/slog"

	"github.com/helixml/passage/domain/passage"
	domainservice "github.com/helixml/passage/domain/service"
)

// SearchOption configures a search request.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK             int
	minSimilarity    float64
	hasMinSimilarity bool
}

// WithTopK sets the maximum number of results.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMinSimilarity drops results scoring below threshold.
func WithMinSimilarity(threshold float64) SearchOption {
	return func(c *searchConfig) {
		c.minSimilarity = threshold
		c.hasMinSimilarity = true
	}
}

// Search answers queries with ranked passages.
type Search struct {
	retriever        *domainservice.Retriever
	topK             int
	minSimilarity    float64
	hasMinSimilarity bool
	logger           *slog.Logger
}

// NewSearch creates a Search with default k and an optional default threshold.
func NewSearch(retriever *domainservice.Retriever, topK int, minSimilarity *float64, logger *slog.Logger) *Search {
	if topK <= 0 {
		topK = domainservice.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Search{retriever: retriever, topK: topK, logger: logger}
	if minSimilarity != nil {
		s.minSimilarity = *minSimilarity
		s.hasMinSimilarity = true
	}
	return s
}

// Query retrieves the passages most similar to query.
func (s *Search) Query(ctx context.Context, query string, opts ...SearchOption) ([]passage.Result, error) {
	cfg := searchConfig{
		topK:             s.topK,
		minSimilarity:    s.minSimilarity,
		hasMinSimilarity: s.hasMinSimilarity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var retrieveOpts []domainservice.RetrieveOption
	if cfg.hasMinSimilarity {
		retrieveOpts = append(retrieveOpts, domainservice.WithMinSimilarity(cfg.minSimilarity))
	}

	results, err := s.retriever.Retrieve(ctx, query, cfg.topK, retrieveOpts...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search", slog.Int("top_k", cfg.topK), slog.Int("results", len(results)))
	return results, nil
}
