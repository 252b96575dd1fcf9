package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/domain/search"
	domainservice "github.com/helixml/passage/domain/service"
)

// IngestOption configures an ingestion run.
type IngestOption func(*ingestConfig)

type ingestConfig struct {
	rebuild bool
}

// WithRebuild replaces an existing corpus instead of refusing to ingest.
func WithRebuild(rebuild bool) IngestOption {
	return func(c *ingestConfig) { c.rebuild = rebuild }
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	pages     int
	chunks    int
	stored    int
	dimension int
	duration  time.Duration
}

// Pages returns the number of non-blank pages read.
func (r IngestResult) Pages() int { return r.pages }

// Chunks returns the number of chunks produced before filtering.
func (r IngestResult) Chunks() int { return r.chunks }

// Stored returns the number of chunks persisted.
func (r IngestResult) Stored() int { return r.stored }

// Dimension returns the embedding dimension, 0 when nothing was stored.
func (r IngestResult) Dimension() int { return r.dimension }

// Duration returns the wall time of the run.
func (r IngestResult) Duration() time.Duration { return r.duration }

// Ingestion turns pages into stored, embedded chunks:
// normalize → chunk → filter → embed → store.
type Ingestion struct {
	store     passage.Store
	chunker   *domainservice.SemanticChunker
	embedder  search.TextEmbedder
	minLength int
	logger    *slog.Logger
}

// NewIngestion creates a new Ingestion service.
func NewIngestion(
	store passage.Store,
	chunker *domainservice.SemanticChunker,
	embedder search.TextEmbedder,
	minLength int,
	logger *slog.Logger,
) (*Ingestion, error) {
	if store == nil || chunker == nil || embedder == nil {
		return nil, errors.New("NewIngestion: nil dependency")
	}
	if minLength < 0 {
		minLength = domainservice.DefaultMinChunkLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestion{
		store:     store,
		chunker:   chunker,
		embedder:  embedder,
		minLength: minLength,
		logger:    logger,
	}, nil
}

// Ingest runs the pipeline over pages. A store that already holds chunks is
// rejected with passage.ErrStoreNotEmpty unless WithRebuild is given, in
// which case the old corpus is swapped for the new one in a single store
// transaction after every embedding has been computed.
func (s *Ingestion) Ingest(ctx context.Context, pages []passage.Page, opts ...IngestOption) (IngestResult, error) {
	cfg := ingestConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	start := time.Now()

	existing, err := s.store.Count(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	if existing > 0 && !cfg.rebuild {
		return IngestResult{}, fmt.Errorf("%d chunks present, rebuild to replace them: %w", existing, passage.ErrStoreNotEmpty)
	}

	normalized := domainservice.NormalizePages(pages)
	chunks, err := s.chunker.Chunk(ctx, normalized)
	if err != nil {
		return IngestResult{}, fmt.Errorf("chunk: %w", err)
	}
	kept := domainservice.Filter(chunks, s.minLength)
	s.logger.Info("chunked document",
		slog.Int("pages", len(pages)),
		slog.Int("chunks", len(chunks)),
		slog.Int("kept", len(kept)),
		slog.Int("min_length", s.minLength),
	)

	texts := make([]string, len(kept))
	for i, c := range kept {
		texts[i] = c.Text()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return IngestResult{}, fmt.Errorf("embed chunks: %w: %w", passage.ErrEmbedderUnavailable, err)
	}
	if len(vectors) != len(kept) {
		return IngestResult{}, fmt.Errorf("embed chunks: got %d vectors for %d chunks: %w", len(vectors), len(kept), passage.ErrEmbedderUnavailable)
	}

	var ids []int64
	if existing > 0 {
		ids, err = s.store.Replace(ctx, kept, vectors)
		if err != nil {
			return IngestResult{}, fmt.Errorf("replace chunks: %w", err)
		}
		s.logger.Info("replaced existing corpus", slog.Int64("previous_chunks", existing))
	} else {
		ids, err = s.store.InsertAll(ctx, kept, vectors)
		if err != nil {
			return IngestResult{}, fmt.Errorf("store chunks: %w", err)
		}
	}

	result := IngestResult{
		pages:    len(pages),
		chunks:   len(chunks),
		stored:   len(ids),
		duration: time.Since(start),
	}
	if len(vectors) > 0 {
		result.dimension = len(vectors[0])
	}
	s.logger.Info("ingestion complete",
		slog.Int("stored", result.stored),
		slog.Int("dimension", result.dimension),
		slog.Duration("duration", result.duration),
	)
	return result, nil
}
