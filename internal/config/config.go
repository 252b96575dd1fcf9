// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultStoreFile             = "passage.db"
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEmbeddingBatchSize    = 10
	DefaultEmbeddingParallel     = 1
	DefaultMinChunkLength        = 50
	DefaultBreakpointType        = "percentile"
	DefaultBufferSize            = 1
	DefaultTopK                  = 3
	DefaultDownloadTimeout       = 180 * time.Second
	DefaultSecretsFile           = "secrets.toml"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures an OpenAI-compatible service endpoint.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	batchSize     int
	parallel      int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
		batchSize:     DefaultEmbeddingBatchSize,
		parallel:      DefaultEmbeddingParallel,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// BatchSize returns the number of texts sent per embedding request.
func (e Endpoint) BatchSize() int { return e.batchSize }

// Parallel returns the number of concurrent embedding requests.
func (e Endpoint) Parallel() int { return e.parallel }

// IsConfigured returns true if the endpoint can be called.
func (e Endpoint) IsConfigured() bool {
	return e.apiKey != "" || e.baseURL != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) {
		if d > 0 {
			e.initialDelay = d
		}
	}
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) {
		if f > 0 {
			e.backoffFactor = f
		}
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithParallel sets the number of concurrent embedding requests.
func WithParallel(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.parallel = n
		}
	}
}

// Apply returns a copy of the endpoint with opts applied.
func (e Endpoint) Apply(opts ...EndpointOption) Endpoint {
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// ChunkingConfig configures semantic chunking and filtering.
type ChunkingConfig struct {
	minLength        int
	breakpointType   string
	breakpointAmount float64
	bufferSize       int
}

// NewChunkingConfig creates a ChunkingConfig with defaults.
func NewChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		minLength:      DefaultMinChunkLength,
		breakpointType: DefaultBreakpointType,
		bufferSize:     DefaultBufferSize,
	}
}

// MinLength returns the minimum chunk length in characters.
func (c ChunkingConfig) MinLength() int { return c.minLength }

// BreakpointType returns the breakpoint statistic name.
func (c ChunkingConfig) BreakpointType() string { return c.breakpointType }

// BreakpointAmount returns the breakpoint amount, 0 for the statistic's default.
func (c ChunkingConfig) BreakpointAmount() float64 { return c.breakpointAmount }

// BufferSize returns the number of neighbouring sentences combined per embedding.
func (c ChunkingConfig) BufferSize() int { return c.bufferSize }

// RetrievalConfig configures default retrieval parameters.
type RetrievalConfig struct {
	topK          int
	minSimilarity *float64
}

// NewRetrievalConfig creates a RetrievalConfig with defaults.
func NewRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{topK: DefaultTopK}
}

// TopK returns the default number of results.
func (r RetrievalConfig) TopK() int { return r.topK }

// MinSimilarity returns the default similarity threshold, if any.
func (r RetrievalConfig) MinSimilarity() (float64, bool) {
	if r.minSimilarity == nil {
		return 0, false
	}
	return *r.minSimilarity, true
}

// StoreConfig configures remote provisioning of the store file.
type StoreConfig struct {
	remoteURL       string
	token           string
	sha256          string
	downloadTimeout time.Duration
}

// NewStoreConfig creates a StoreConfig with defaults.
func NewStoreConfig() StoreConfig {
	return StoreConfig{downloadTimeout: DefaultDownloadTimeout}
}

// RemoteURL returns the URL the store file is downloaded from.
func (s StoreConfig) RemoteURL() string { return s.remoteURL }

// Token returns the bearer token for the download.
func (s StoreConfig) Token() string { return s.token }

// SHA256 returns the expected hex checksum of the store file.
func (s StoreConfig) SHA256() string { return s.sha256 }

// DownloadTimeout returns the download deadline.
func (s StoreConfig) DownloadTimeout() time.Duration { return s.downloadTimeout }

// AppConfig holds the main application configuration.
type AppConfig struct {
	host          string
	port          int
	dataDir       string
	dbURL         string
	logLevel      string
	logFormat     LogFormat
	apiKeys       []string
	httpCacheDir  string
	localModelDir string
	secretsFile   string
	embedding     Endpoint
	answer        Endpoint
	chunking      ChunkingConfig
	retrieval     RetrievalConfig
	store         StoreConfig
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".passage"
	}
	return filepath.Join(home, ".passage")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:        DefaultHost,
		port:        DefaultPort,
		dataDir:     dataDir,
		dbURL:       "sqlite:///" + filepath.Join(dataDir, DefaultStoreFile),
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		apiKeys:     []string{},
		secretsFile: DefaultSecretsFile,
		embedding:   NewEndpoint(),
		answer:      NewEndpoint(),
		chunking:    NewChunkingConfig(),
		retrieval:   NewRetrievalConfig(),
		store:       NewStoreConfig(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// StorePath returns the local file behind a SQLite URL, or "" for other
// databases and in-memory SQLite.
func (c AppConfig) StorePath() string {
	path, ok := strings.CutPrefix(c.dbURL, "sqlite:///")
	if !ok || path == "" || path == ":memory:" {
		return ""
	}
	return path
}

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// HTTPCacheDir returns the directory for caching provider responses, if set.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// LocalModelDir returns the directory of a local embedding model, if set.
func (c AppConfig) LocalModelDir() string { return c.localModelDir }

// SecretsFile returns the path of the TOML secrets file.
func (c AppConfig) SecretsFile() string { return c.secretsFile }

// EmbeddingEndpoint returns the embedding endpoint config.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embedding }

// AnswerEndpoint returns the chat endpoint used for answers.
func (c AppConfig) AnswerEndpoint() Endpoint { return c.answer }

// Chunking returns the chunking config.
func (c AppConfig) Chunking() ChunkingConfig { return c.chunking }

// Retrieval returns the retrieval config.
func (c AppConfig) Retrieval() RetrievalConfig { return c.retrieval }

// Store returns the store provisioning config.
func (c AppConfig) Store() StoreConfig { return c.store }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		previous := "sqlite:///" + filepath.Join(c.dataDir, DefaultStoreFile)
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || c.dbURL == previous {
			c.dbURL = "sqlite:///" + filepath.Join(dir, DefaultStoreFile)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithHTTPCacheDir sets the provider response cache directory.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// WithLocalModelDir sets the local embedding model directory.
func WithLocalModelDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.localModelDir = dir }
}

// WithSecretsFile sets the TOML secrets file path.
func WithSecretsFile(path string) AppConfigOption {
	return func(c *AppConfig) { c.secretsFile = path }
}

// WithEmbeddingEndpoint applies options to the embedding endpoint.
func WithEmbeddingEndpoint(opts ...EndpointOption) AppConfigOption {
	return func(c *AppConfig) { c.embedding = c.embedding.Apply(opts...) }
}

// WithAnswerEndpoint applies options to the answer endpoint.
func WithAnswerEndpoint(opts ...EndpointOption) AppConfigOption {
	return func(c *AppConfig) { c.answer = c.answer.Apply(opts...) }
}

// WithMinChunkLength sets the minimum chunk length.
func WithMinChunkLength(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n >= 0 {
			c.chunking.minLength = n
		}
	}
}

// WithBreakpoint sets the breakpoint statistic and amount. A zero amount
// keeps the statistic's default.
func WithBreakpoint(kind string, amount float64) AppConfigOption {
	return func(c *AppConfig) {
		if kind != "" {
			c.chunking.breakpointType = strings.ToLower(kind)
		}
		c.chunking.breakpointAmount = amount
	}
}

// WithBufferSize sets the sentence buffer size.
func WithBufferSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n >= 0 {
			c.chunking.bufferSize = n
		}
	}
}

// WithTopK sets the default number of search results.
func WithTopK(k int) AppConfigOption {
	return func(c *AppConfig) {
		if k > 0 {
			c.retrieval.topK = k
		}
	}
}

// WithMinSimilarity sets the default similarity threshold.
func WithMinSimilarity(threshold float64) AppConfigOption {
	return func(c *AppConfig) { c.retrieval.minSimilarity = &threshold }
}

// WithStoreRemote sets where and how the store file is downloaded.
func WithStoreRemote(url, token, sha256 string) AppConfigOption {
	return func(c *AppConfig) {
		if url != "" {
			c.store.remoteURL = url
		}
		if token != "" {
			c.store.token = token
		}
		if sha256 != "" {
			c.store.sha256 = sha256
		}
	}
}

// WithDownloadTimeout sets the store download timeout.
func WithDownloadTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.store.downloadTimeout = d
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	return NewAppConfig().Apply(opts...)
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	c.apiKeys = c.APIKeys()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_base_url", c.embedding.BaseURL()),
		slog.String("embedding_model", c.embedding.Model()),
		slog.String("answer_model", c.answer.Model()),
		slog.String("local_model_dir", c.localModelDir),
		slog.String("breakpoint_type", c.chunking.breakpointType),
		slog.Int("min_chunk_length", c.chunking.minLength),
		slog.Int("top_k", c.retrieval.topK),
		slog.Bool("store_remote", c.store.remoteURL != ""),
		slog.Int("api_keys_count", len(c.apiKeys)),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
