package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Unset fields leave the underlying configuration untouched, so values from
// a settings file survive unless the environment overrides them.
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST
	Host string `envconfig:"HOST"`

	// Port is the server port to listen on.
	// Env: PORT
	Port int `envconfig:"PORT"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.passage
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the store connection URL or SQLite file path.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/passage.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL
	LogLevel string `envconfig:"LOG_LEVEL"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT
	LogFormat string `envconfig:"LOG_FORMAT"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// HTTPCacheDir is the directory for caching provider responses to disk.
	// Env: HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`

	// LocalEmbeddingModelDir points at a local ONNX sentence-transformers model.
	// Env: LOCAL_EMBEDDING_MODEL_DIR
	LocalEmbeddingModelDir string `envconfig:"LOCAL_EMBEDDING_MODEL_DIR"`

	// SecretsFile is the TOML file consulted for secrets absent from the environment.
	// Env: SECRETS_FILE
	SecretsFile string `envconfig:"SECRETS_FILE"`

	// EmbeddingEndpoint configures the embedding service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// AnswerEndpoint configures the chat service used for answers.
	AnswerEndpoint EndpointEnv `envconfig:"ANSWER_ENDPOINT"`

	// Chunk configures chunking.
	Chunk ChunkEnv `envconfig:"CHUNK"`

	// Retrieval configures search defaults.
	Retrieval RetrievalEnv `envconfig:"RETRIEVAL"`

	// Store configures store provisioning.
	Store StoreEnv `envconfig:"STORE"`
}

// EndpointEnv holds environment configuration for an AI endpoint.
type EndpointEnv struct {
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT
	Timeout float64 `envconfig:"TIMEOUT"`

	// Env: *_MAX_RETRIES
	MaxRetries *int `envconfig:"MAX_RETRIES"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: *_INITIAL_DELAY
	InitialDelay float64 `envconfig:"INITIAL_DELAY"`

	// Env: *_BACKOFF_FACTOR
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR"`

	// Env: *_BATCH_SIZE
	BatchSize int `envconfig:"BATCH_SIZE"`

	// Env: *_NUM_PARALLEL_TASKS
	NumParallelTasks int `envconfig:"NUM_PARALLEL_TASKS"`
}

// ChunkEnv holds environment configuration for chunking.
type ChunkEnv struct {
	// Env: CHUNK_MIN_LENGTH
	MinLength *int `envconfig:"MIN_LENGTH"`

	// Env: CHUNK_BREAKPOINT_TYPE
	BreakpointType string `envconfig:"BREAKPOINT_TYPE"`

	// Env: CHUNK_BREAKPOINT_AMOUNT
	BreakpointAmount float64 `envconfig:"BREAKPOINT_AMOUNT"`

	// Env: CHUNK_BUFFER_SIZE
	BufferSize *int `envconfig:"BUFFER_SIZE"`
}

// RetrievalEnv holds environment configuration for retrieval.
type RetrievalEnv struct {
	// Env: RETRIEVAL_TOP_K
	TopK int `envconfig:"TOP_K"`

	// Env: RETRIEVAL_MIN_SIMILARITY
	MinSimilarity *float64 `envconfig:"MIN_SIMILARITY"`
}

// StoreEnv holds environment configuration for store provisioning.
type StoreEnv struct {
	// Env: STORE_REMOTE_URL
	RemoteURL string `envconfig:"REMOTE_URL"`

	// Env: STORE_REMOTE_TOKEN
	RemoteToken string `envconfig:"REMOTE_TOKEN"`

	// Env: STORE_SHA256
	SHA256 string `envconfig:"SHA256"`

	// DownloadTimeout is the download deadline in seconds.
	// Env: STORE_DOWNLOAD_TIMEOUT
	DownloadTimeout float64 `envconfig:"DOWNLOAD_TIMEOUT"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	return LoadFromEnvWithPrefix("")
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "PASSAGE" would require PASSAGE_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig over the defaults.
func (e EnvConfig) ToAppConfig() AppConfig {
	return e.Apply(NewAppConfig())
}

// Apply overrides cfg with every variable that is set.
func (e EnvConfig) Apply(cfg AppConfig) AppConfig {
	var opts []AppConfigOption

	if e.Host != "" {
		opts = append(opts, WithHost(e.Host))
	}
	if e.Port != 0 {
		opts = append(opts, WithPort(e.Port))
	}
	if e.DataDir != "" {
		opts = append(opts, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		opts = append(opts, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		opts = append(opts, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		opts = append(opts, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		opts = append(opts, WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}
	if e.HTTPCacheDir != "" {
		opts = append(opts, WithHTTPCacheDir(e.HTTPCacheDir))
	}
	if e.LocalEmbeddingModelDir != "" {
		opts = append(opts, WithLocalModelDir(e.LocalEmbeddingModelDir))
	}
	if e.SecretsFile != "" {
		opts = append(opts, WithSecretsFile(e.SecretsFile))
	}

	opts = append(opts,
		WithEmbeddingEndpoint(e.EmbeddingEndpoint.options()...),
		WithAnswerEndpoint(e.AnswerEndpoint.options()...),
	)

	if e.Chunk.MinLength != nil {
		opts = append(opts, WithMinChunkLength(*e.Chunk.MinLength))
	}
	if e.Chunk.BreakpointType != "" || e.Chunk.BreakpointAmount != 0 {
		kind := e.Chunk.BreakpointType
		if kind == "" {
			kind = cfg.Chunking().BreakpointType()
		}
		opts = append(opts, WithBreakpoint(kind, e.Chunk.BreakpointAmount))
	}
	if e.Chunk.BufferSize != nil {
		opts = append(opts, WithBufferSize(*e.Chunk.BufferSize))
	}

	if e.Retrieval.TopK > 0 {
		opts = append(opts, WithTopK(e.Retrieval.TopK))
	}
	if e.Retrieval.MinSimilarity != nil {
		opts = append(opts, WithMinSimilarity(*e.Retrieval.MinSimilarity))
	}

	opts = append(opts,
		WithStoreRemote(e.Store.RemoteURL, e.Store.RemoteToken, e.Store.SHA256),
		WithDownloadTimeout(seconds(e.Store.DownloadTimeout)),
	)

	return cfg.Apply(opts...)
}

func (e EndpointEnv) options() []EndpointOption {
	var opts []EndpointOption
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	if e.MaxRetries != nil {
		opts = append(opts, WithMaxRetries(*e.MaxRetries))
	}
	return append(opts,
		WithTimeout(seconds(e.Timeout)),
		WithInitialDelay(seconds(e.InitialDelay)),
		WithBackoffFactor(e.BackoffFactor),
		WithBatchSize(e.BatchSize),
		WithParallel(e.NumParallelTasks),
	)
}

// seconds converts fractional seconds to a duration; zero stays zero.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
