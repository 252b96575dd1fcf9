// Package passage provides semantic document retrieval: documents are split
// into semantically coherent chunks, embedded, stored, and searched by
// cosine similarity.
//
// Basic usage:
//
//	client, err := passage.New(
//	    passage.WithSQLite(".passage/passage.db"),
//	    passage.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	pages, err := loader.Load("handbook.txt")
//	_, err = client.Ingestion.Ingest(ctx, pages)
//
//	results, err := client.Search.Query(ctx, "How should reports be structured?",
//	    service.WithTopK(3),
//	)
//	for _, r := range results {
//	    fmt.Printf("%.3f %s\n", r.Similarity(), r.Text())
//	}
package passage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/domain/search"
	domainservice "github.com/helixml/passage/domain/service"
	"github.com/helixml/passage/infrastructure/persistence"
	"github.com/helixml/passage/infrastructure/provider"
	"github.com/helixml/passage/infrastructure/provision"
)

// Client is the main entry point for the passage library.
//
// Access services via struct fields:
//
//	client.Ingestion.Ingest(ctx, pages)
//	client.Search.Query(ctx, "query")
//	client.Answers.Ask(ctx, "question")
type Client struct {
	Ingestion *service.Ingestion
	Search    *service.Search
	// Answers is nil when no text provider is configured.
	Answers *service.Answering

	store          *persistence.ChunkStore
	chunker        *domainservice.SemanticChunker
	hugotEmbedding *provider.HugotEmbedding
	closers        []io.Closer

	logger  *slog.Logger
	apiKeys []string
	closed  atomic.Bool
	mu      sync.Mutex
}

// Stats describes the stored corpus.
type Stats struct {
	Chunks    int64
	Dimension int
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dbURL == "" {
		return nil, ErrNoDatabase
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()

	if cfg.provision != nil {
		req := *cfg.provision
		if req.LocalPath == "" {
			path, ok := strings.CutPrefix(cfg.dbURL, "sqlite:///")
			if !ok {
				return nil, errors.New("provision store: a local path is required for non-SQLite stores")
			}
			req.LocalPath = path
		}
		provisioner := provision.New(
			provision.WithTimeout(cfg.downloadTimeout),
			provision.WithLogger(logger),
		)
		if _, err := service.NewProvisioning(provisioner, req, logger).Ensure(ctx); err != nil {
			return nil, fmt.Errorf("provision store: %w", err)
		}
	}

	// Fall back to the built-in embedding model when no provider is configured
	var hugotEmbedding *provider.HugotEmbedding
	batchSize := cfg.batchSize
	if cfg.embeddingProvider == nil {
		modelDir := cfg.modelDir
		if modelDir == "" {
			modelDir = filepath.Join(cfg.dataDir, "models")
		}
		hugotEmbedding = provider.NewHugotEmbedding(modelDir)
		if !hugotEmbedding.Available() {
			return nil, fmt.Errorf("%w: no model in %s, run 'passage model download' or configure an embedding endpoint", ErrNoEmbedder, modelDir)
		}
		cfg.embeddingProvider = hugotEmbedding
		batchSize = min(batchSize, hugotEmbedding.Capacity())
		logger.Info("built-in embedding provider enabled", slog.String("model_dir", modelDir))
	}
	embedder := provider.NewBatchEmbedder(cfg.embeddingProvider, batchSize, cfg.parallel)

	store, err := persistence.OpenChunkStore(ctx, cfg.dbURL, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open store: %w", err), closeHugot(hugotEmbedding))
	}

	client, err := build(store, embedder, cfg, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close(), closeHugot(hugotEmbedding))
	}
	client.hugotEmbedding = hugotEmbedding
	return client, nil
}

func build(store *persistence.ChunkStore, embedder search.TextEmbedder, cfg *clientConfig, logger *slog.Logger) (*Client, error) {
	chunker, err := domainservice.NewSemanticChunker(embedder, cfg.chunkerOptions...)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}
	ingestion, err := service.NewIngestion(store, chunker, embedder, cfg.minChunkLength, logger)
	if err != nil {
		return nil, fmt.Errorf("create ingestion: %w", err)
	}
	retriever, err := domainservice.NewRetriever(store, embedder)
	if err != nil {
		return nil, fmt.Errorf("create retriever: %w", err)
	}

	client := &Client{
		Ingestion: ingestion,
		Search:    service.NewSearch(retriever, cfg.topK, cfg.minSimilarity, logger),
		store:     store,
		chunker:   chunker,
		closers:   cfg.closers,
		logger:    logger,
		apiKeys:   cfg.apiKeys,
	}

	if cfg.textProvider != nil {
		answers, err := service.NewAnswering(client.Search, cfg.textProvider)
		if err != nil {
			return nil, fmt.Errorf("create answering: %w", err)
		}
		client.Answers = answers
	}

	bp := chunker.Config()
	logger.Debug("client ready",
		slog.String("breakpoint", string(bp.Breakpoint())),
		slog.Float64("amount", bp.Amount()),
		slog.Int("buffer", bp.BufferSize()),
		slog.Int("min_chunk_length", cfg.minChunkLength),
		slog.Int("top_k", cfg.topK),
		slog.Bool("answers", client.Answers != nil),
	)
	return client, nil
}

// Stats reports how many chunks are stored and their embedding dimension.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	if c.closed.Load() {
		return Stats{}, ErrClientClosed
	}
	count, err := c.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	dim, _, err := c.store.Dimension(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Chunks: count, Dimension: dim}, nil
}

// APIKeys returns the keys accepted by the HTTP API.
func (c *Client) APIKeys() []string {
	return append([]string{}, c.apiKeys...)
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Close releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := closeHugot(c.hugotEmbedding); err != nil {
		c.logger.Error("failed to close hugot embedding", slog.Any("error", err))
	}

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	c.logger.Info("passage client closed")
	return nil
}

func closeHugot(h *provider.HugotEmbedding) error {
	if h == nil {
		return nil
	}
	return h.Close()
}
