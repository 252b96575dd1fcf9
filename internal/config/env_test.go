package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Unset(t *testing.T) {
	clearEnvVars(t)

	env, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "", env.Host)
	assert.Nil(t, env.Retrieval.MinSimilarity)
	assert.Nil(t, env.Chunk.MinLength)

	cfg := env.ToAppConfig()
	defaults := NewAppConfig()
	assert.Equal(t, defaults.Addr(), cfg.Addr())
	assert.Equal(t, defaults.DBURL(), cfg.DBURL())
	assert.Equal(t, DefaultTopK, cfg.Retrieval().TopK())
	_, ok := cfg.Retrieval().MinSimilarity()
	assert.False(t, ok)
	assert.Equal(t, DefaultMinChunkLength, cfg.Chunking().MinLength())
	assert.Equal(t, DefaultBreakpointType, cfg.Chunking().BreakpointType())
	assert.Equal(t, DefaultEndpointTimeout, cfg.EmbeddingEndpoint().Timeout())
	assert.Equal(t, DefaultDownloadTimeout, cfg.Store().DownloadTimeout())
}

func TestLoadFromEnv_Values(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/tmp/passage-data")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("API_KEYS", "key1, key2,,")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_API_KEY", "sk-embed")
	t.Setenv("EMBEDDING_ENDPOINT_TIMEOUT", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_RETRIES", "0")
	t.Setenv("EMBEDDING_ENDPOINT_BATCH_SIZE", "32")
	t.Setenv("EMBEDDING_ENDPOINT_NUM_PARALLEL_TASKS", "4")
	t.Setenv("ANSWER_ENDPOINT_MODEL", "gpt-4o")
	t.Setenv("CHUNK_MIN_LENGTH", "0")
	t.Setenv("CHUNK_BREAKPOINT_TYPE", "Interquartile")
	t.Setenv("CHUNK_BREAKPOINT_AMOUNT", "2")
	t.Setenv("CHUNK_BUFFER_SIZE", "2")
	t.Setenv("RETRIEVAL_TOP_K", "5")
	t.Setenv("RETRIEVAL_MIN_SIMILARITY", "0.25")
	t.Setenv("STORE_REMOTE_URL", "https://example.com/vectors.db")
	t.Setenv("STORE_SHA256", "abc123")
	t.Setenv("STORE_DOWNLOAD_TIMEOUT", "30")

	env, err := LoadFromEnv()
	require.NoError(t, err)
	cfg := env.ToAppConfig()

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "sqlite:///"+filepath.Join("/tmp/passage-data", DefaultStoreFile), cfg.DBURL())
	assert.Equal(t, filepath.Join("/tmp/passage-data", DefaultStoreFile), cfg.StorePath())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.Equal(t, []string{"key1", "key2"}, cfg.APIKeys())

	emb := cfg.EmbeddingEndpoint()
	assert.Equal(t, "text-embedding-3-small", emb.Model())
	assert.Equal(t, "sk-embed", emb.APIKey())
	assert.Equal(t, 1500*time.Millisecond, emb.Timeout())
	assert.Equal(t, 0, emb.MaxRetries())
	assert.Equal(t, 32, emb.BatchSize())
	assert.Equal(t, 4, emb.Parallel())
	assert.True(t, emb.IsConfigured())
	assert.Equal(t, "gpt-4o", cfg.AnswerEndpoint().Model())

	assert.Equal(t, 0, cfg.Chunking().MinLength())
	assert.Equal(t, "interquartile", cfg.Chunking().BreakpointType())
	assert.Equal(t, 2.0, cfg.Chunking().BreakpointAmount())
	assert.Equal(t, 2, cfg.Chunking().BufferSize())

	assert.Equal(t, 5, cfg.Retrieval().TopK())
	threshold, ok := cfg.Retrieval().MinSimilarity()
	require.True(t, ok)
	assert.Equal(t, 0.25, threshold)

	assert.Equal(t, "https://example.com/vectors.db", cfg.Store().RemoteURL())
	assert.Equal(t, "abc123", cfg.Store().SHA256())
	assert.Equal(t, 30*time.Second, cfg.Store().DownloadTimeout())
}

func TestLoadFromEnv_InvalidNumber(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PORT", "not-a-port")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnvWithPrefix(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PASSAGE_DB_URL", "postgres://u:p@localhost/passage")

	env, err := LoadFromEnvWithPrefix("PASSAGE")
	require.NoError(t, err)
	cfg := env.ToAppConfig()
	assert.Equal(t, "postgres://u:p@localhost/passage", cfg.DBURL())
	assert.Equal(t, "", cfg.StorePath())
}

func TestLoadConfig_Priority(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	settings := filepath.Join(dir, "passage.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(`
log_level: DEBUG
server:
  port: 7000
retrieval:
  top_k: 7
  min_similarity: 0.1
embedding:
  model: from-file
`), 0o644))

	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("RETRIEVAL_TOP_K=4\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("RETRIEVAL_TOP_K") })

	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "from-env")
	t.Setenv("SECRETS_FILE", filepath.Join(dir, "absent.toml"))

	cfg, err := LoadConfig(dotenv, settings)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel(), "file beats defaults")
	assert.Equal(t, 7000, cfg.Port())
	assert.Equal(t, 4, cfg.Retrieval().TopK(), ".env beats file")
	assert.Equal(t, "from-env", cfg.EmbeddingEndpoint().Model(), "environment beats file")
	threshold, ok := cfg.Retrieval().MinSimilarity()
	require.True(t, ok)
	assert.Equal(t, 0.1, threshold)
}

func TestLoadConfig_MissingSettingsFile(t *testing.T) {
	clearEnvVars(t)
	_, err := LoadConfig("", filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, ErrSettingsNotFound)
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

// clearEnvVars unsets every variable the loader reads and restores them
// when the test finishes.
func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST",
		"PORT",
		"DATA_DIR",
		"DB_URL",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"API_KEYS",
		"HTTP_CACHE_DIR",
		"LOCAL_EMBEDDING_MODEL_DIR",
		"SECRETS_FILE",
		"CHUNK_MIN_LENGTH",
		"CHUNK_BREAKPOINT_TYPE",
		"CHUNK_BREAKPOINT_AMOUNT",
		"CHUNK_BUFFER_SIZE",
		"RETRIEVAL_TOP_K",
		"RETRIEVAL_MIN_SIMILARITY",
		"STORE_REMOTE_URL",
		"STORE_REMOTE_TOKEN",
		"STORE_SHA256",
		"STORE_DOWNLOAD_TIMEOUT",
		"PASSAGE_DB_URL",
	}
	for _, prefix := range []string{"EMBEDDING_ENDPOINT_", "ANSWER_ENDPOINT_"} {
		for _, suffix := range []string{"BASE_URL", "MODEL", "API_KEY", "TIMEOUT", "MAX_RETRIES", "INITIAL_DELAY", "BACKOFF_FACTOR", "BATCH_SIZE", "NUM_PARALLEL_TASKS"} {
			vars = append(vars, prefix+suffix)
		}
	}

	for _, v := range vars {
		t.Setenv(v, "")
		_ = os.Unsetenv(v)
	}
}
