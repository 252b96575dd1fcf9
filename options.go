package passage

import (
	"io"
	"log/slog"
	"time"

	domainservice "github.com/helixml/passage/domain/service"
	"github.com/helixml/passage/infrastructure/provider"
	"github.com/helixml/passage/infrastructure/provision"
	"github.com/helixml/passage/internal/config"
	"github.com/helixml/passage/internal/database"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL             string
	dataDir           string
	modelDir          string
	textProvider      provider.TextGenerator
	embeddingProvider provider.Embedder
	batchSize         int
	parallel          int
	chunkerOptions    []domainservice.ChunkerOption
	minChunkLength    int
	topK              int
	minSimilarity     *float64
	provision         *provision.Request
	downloadTimeout   time.Duration
	logger            *slog.Logger
	apiKeys           []string
	closers           []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:         config.DefaultDataDir(),
		batchSize:       config.DefaultEmbeddingBatchSize,
		parallel:        config.DefaultEmbeddingParallel,
		minChunkLength:  config.DefaultMinChunkLength,
		topK:            config.DefaultTopK,
		downloadTimeout: config.DefaultDownloadTimeout,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite stores chunks in the SQLite file at path.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = database.URL(path)
	}
}

// WithPostgres stores chunks in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithDatabaseURL sets the store URL directly (sqlite:///path or postgres://...).
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = database.URL(url)
	}
}

// WithOpenAI sets OpenAI as the provider for embeddings and answers.
func WithOpenAI(apiKey string) Option {
	return WithOpenAIConfig(provider.OpenAIConfig{APIKey: apiKey})
}

// WithOpenAIConfig sets an OpenAI-compatible provider with custom configuration.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		p := provider.NewOpenAIProvider(cfg)
		c.textProvider = p
		c.embeddingProvider = p
	}
}

// WithTextProvider sets a custom text generation provider.
func WithTextProvider(p provider.TextGenerator) Option {
	return func(c *clientConfig) {
		c.textProvider = p
	}
}

// WithEmbeddingProvider sets a custom embedding provider.
func WithEmbeddingProvider(p provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = p
	}
}

// WithEmbeddingBatching sets the number of texts per embedding request and
// how many requests run at once.
func WithEmbeddingBatching(batchSize, parallel int) Option {
	return func(c *clientConfig) {
		if batchSize > 0 {
			c.batchSize = batchSize
		}
		if parallel > 0 {
			c.parallel = parallel
		}
	}
}

// WithModelDir sets the directory holding the local embedding model.
// Defaults to {dataDir}/models. It is used only when no embedding provider is set.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) {
		c.modelDir = dir
	}
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithChunking configures the semantic chunker.
func WithChunking(opts ...domainservice.ChunkerOption) Option {
	return func(c *clientConfig) {
		c.chunkerOptions = append(c.chunkerOptions, opts...)
	}
}

// WithMinChunkLength sets the minimum chunk length kept at ingestion.
func WithMinChunkLength(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.minChunkLength = n
		}
	}
}

// WithTopK sets the default number of search results.
func WithTopK(k int) Option {
	return func(c *clientConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMinSimilarity sets the default similarity threshold for searches.
func WithMinSimilarity(threshold float64) Option {
	return func(c *clientConfig) {
		c.minSimilarity = &threshold
	}
}

// WithProvisioning makes New download the SQLite store from req.RemoteURL
// when the file is missing. req.LocalPath defaults to the SQLite path.
func WithProvisioning(req provision.Request) Option {
	return func(c *clientConfig) {
		c.provision = &req
	}
}

// WithDownloadTimeout bounds the store download.
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.downloadTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithAPIKeys sets the keys accepted by the HTTP API.
func WithAPIKeys(keys ...string) Option {
	return func(c *clientConfig) {
		c.apiKeys = append([]string{}, keys...)
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}
