package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the YAML settings file layout.
type SettingsFile struct {
	DataDir       string            `yaml:"data_dir"`
	DBURL         string            `yaml:"db_url"`
	LogLevel      string            `yaml:"log_level"`
	LogFormat     string            `yaml:"log_format"`
	HTTPCacheDir  string            `yaml:"http_cache_dir"`
	LocalModelDir string            `yaml:"local_model_dir"`
	Server        ServerSettings    `yaml:"server"`
	Embedding     EndpointSettings  `yaml:"embedding"`
	Answer        EndpointSettings  `yaml:"answer"`
	Chunking      ChunkingSettings  `yaml:"chunking"`
	Retrieval     RetrievalSettings `yaml:"retrieval"`
	Store         StoreSettings     `yaml:"store"`
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	APIKeys []string `yaml:"api_keys"`
}

// EndpointSettings configures an OpenAI-compatible endpoint. API keys belong
// in the environment or the secrets file.
type EndpointSettings struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  *int   `yaml:"max_retries"`
	BatchSize   int    `yaml:"batch_size"`
	Parallel    int    `yaml:"parallel"`
}

// ChunkingSettings configures chunking.
type ChunkingSettings struct {
	MinLength        *int    `yaml:"min_length"`
	BreakpointType   string  `yaml:"breakpoint_type"`
	BreakpointAmount float64 `yaml:"breakpoint_amount"`
	BufferSize       *int    `yaml:"buffer_size"`
}

// RetrievalSettings configures search defaults.
type RetrievalSettings struct {
	TopK          int      `yaml:"top_k"`
	MinSimilarity *float64 `yaml:"min_similarity"`
}

// StoreSettings configures store provisioning.
type StoreSettings struct {
	RemoteURL           string `yaml:"remote_url"`
	SHA256              string `yaml:"sha256"`
	DownloadTimeoutSecs int    `yaml:"download_timeout_secs"`
}

// ErrSettingsNotFound indicates the requested settings file does not exist.
var ErrSettingsNotFound = errors.New("settings file not found")

// LoadSettingsFile reads a YAML settings file.
func LoadSettingsFile(path string) (SettingsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SettingsFile{}, fmt.Errorf("%w: %s", ErrSettingsNotFound, path)
		}
		return SettingsFile{}, fmt.Errorf("read settings: %w", err)
	}
	var s SettingsFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return SettingsFile{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Apply overrides cfg with every value present in the file.
func (s SettingsFile) Apply(cfg AppConfig) AppConfig {
	var opts []AppConfigOption

	if s.DataDir != "" {
		opts = append(opts, WithDataDir(s.DataDir))
	}
	if s.DBURL != "" {
		opts = append(opts, WithDBURL(s.DBURL))
	}
	if s.LogLevel != "" {
		opts = append(opts, WithLogLevel(s.LogLevel))
	}
	if s.LogFormat != "" {
		opts = append(opts, WithLogFormat(parseLogFormat(s.LogFormat)))
	}
	if s.HTTPCacheDir != "" {
		opts = append(opts, WithHTTPCacheDir(s.HTTPCacheDir))
	}
	if s.LocalModelDir != "" {
		opts = append(opts, WithLocalModelDir(s.LocalModelDir))
	}
	if s.Server.Host != "" {
		opts = append(opts, WithHost(s.Server.Host))
	}
	if s.Server.Port != 0 {
		opts = append(opts, WithPort(s.Server.Port))
	}
	if len(s.Server.APIKeys) > 0 {
		opts = append(opts, WithAPIKeys(s.Server.APIKeys))
	}

	opts = append(opts,
		WithEmbeddingEndpoint(s.Embedding.options()...),
		WithAnswerEndpoint(s.Answer.options()...),
	)

	if s.Chunking.MinLength != nil {
		opts = append(opts, WithMinChunkLength(*s.Chunking.MinLength))
	}
	if s.Chunking.BreakpointType != "" || s.Chunking.BreakpointAmount != 0 {
		kind := s.Chunking.BreakpointType
		if kind == "" {
			kind = cfg.Chunking().BreakpointType()
		}
		opts = append(opts, WithBreakpoint(kind, s.Chunking.BreakpointAmount))
	}
	if s.Chunking.BufferSize != nil {
		opts = append(opts, WithBufferSize(*s.Chunking.BufferSize))
	}
	if s.Retrieval.TopK > 0 {
		opts = append(opts, WithTopK(s.Retrieval.TopK))
	}
	if s.Retrieval.MinSimilarity != nil {
		opts = append(opts, WithMinSimilarity(*s.Retrieval.MinSimilarity))
	}
	opts = append(opts,
		WithStoreRemote(s.Store.RemoteURL, "", s.Store.SHA256),
		WithDownloadTimeout(seconds(float64(s.Store.DownloadTimeoutSecs))),
	)

	return cfg.Apply(opts...)
}

func (e EndpointSettings) options() []EndpointOption {
	var opts []EndpointOption
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.MaxRetries != nil {
		opts = append(opts, WithMaxRetries(*e.MaxRetries))
	}
	return append(opts,
		WithTimeout(seconds(float64(e.TimeoutSecs))),
		WithBatchSize(e.BatchSize),
		WithParallel(e.Parallel),
	)
}
