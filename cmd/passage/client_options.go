package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/helixml/passage"
	domainservice "github.com/helixml/passage/domain/service"
	"github.com/helixml/passage/infrastructure/provider"
	"github.com/helixml/passage/infrastructure/provision"
	"github.com/helixml/passage/internal/config"
)

// clientOptions returns the passage.Option slice derived from AppConfig:
// storage, providers, chunking, retrieval defaults and store provisioning.
// Provisioning is included only when withProvisioning is set and a remote
// URL is configured.
func clientOptions(cfg config.AppConfig, logger *slog.Logger, withProvisioning bool) ([]passage.Option, error) {
	opts := []passage.Option{
		passage.WithDataDir(cfg.DataDir()),
		passage.WithDatabaseURL(cfg.DBURL()),
		passage.WithLogger(logger),
		passage.WithModelDir(modelDir(cfg)),
	}

	embOpts, err := embeddingOptions(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding config: %w", err)
	}
	opts = append(opts, embOpts...)

	txtOpts, err := textOptions(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("answer config: %w", err)
	}
	opts = append(opts, txtOpts...)

	chunkOpts, err := chunkingOptions(cfg.Chunking())
	if err != nil {
		return nil, fmt.Errorf("chunking config: %w", err)
	}
	opts = append(opts, chunkOpts...)

	retrieval := cfg.Retrieval()
	opts = append(opts, passage.WithTopK(retrieval.TopK()))
	if threshold, ok := retrieval.MinSimilarity(); ok {
		opts = append(opts, passage.WithMinSimilarity(threshold))
	}

	if keys := cfg.APIKeys(); len(keys) > 0 {
		opts = append(opts, passage.WithAPIKeys(keys...))
	}

	if withProvisioning {
		if req, ok := provisionRequest(cfg); ok {
			opts = append(opts,
				passage.WithProvisioning(req),
				passage.WithDownloadTimeout(cfg.Store().DownloadTimeout()),
			)
		}
	}

	return opts, nil
}

// modelDir returns the local embedding model directory.
func modelDir(cfg config.AppConfig) string {
	if dir := cfg.LocalModelDir(); dir != "" {
		return dir
	}
	return filepath.Join(cfg.DataDir(), "models")
}

// openAIConfig maps an endpoint to provider configuration, wiring the HTTP
// response cache when HTTP_CACHE_DIR is set.
func openAIConfig(cfg config.AppConfig, endpoint config.Endpoint, logger *slog.Logger) (provider.OpenAIConfig, error) {
	oc := provider.OpenAIConfig{
		APIKey:        endpoint.APIKey(),
		BaseURL:       endpoint.BaseURL(),
		Timeout:       endpoint.Timeout(),
		MaxRetries:    endpoint.MaxRetries(),
		InitialDelay:  endpoint.InitialDelay(),
		BackoffFactor: endpoint.BackoffFactor(),
	}
	if dir := cfg.HTTPCacheDir(); dir != "" {
		transport, err := provider.NewCachingTransport(dir, nil, logger)
		if err != nil {
			return provider.OpenAIConfig{}, fmt.Errorf("http cache: %w", err)
		}
		oc.Transport = transport
	}
	return oc, nil
}

// embeddingOptions returns the remote embedding provider when the endpoint
// is configured. Without it the client falls back to the local model.
func embeddingOptions(cfg config.AppConfig, logger *slog.Logger) ([]passage.Option, error) {
	endpoint := cfg.EmbeddingEndpoint()
	opts := []passage.Option{passage.WithEmbeddingBatching(endpoint.BatchSize(), endpoint.Parallel())}
	if !endpoint.IsConfigured() {
		return opts, nil
	}

	oc, err := openAIConfig(cfg, endpoint, logger)
	if err != nil {
		return nil, err
	}
	oc.EmbeddingModel = endpoint.Model()
	return append(opts, passage.WithEmbeddingProvider(provider.NewOpenAIProvider(oc))), nil
}

// textOptions returns the answer provider when the answer endpoint is
// configured, or an empty slice otherwise.
func textOptions(cfg config.AppConfig, logger *slog.Logger) ([]passage.Option, error) {
	endpoint := cfg.AnswerEndpoint()
	if !endpoint.IsConfigured() {
		return nil, nil
	}

	oc, err := openAIConfig(cfg, endpoint, logger)
	if err != nil {
		return nil, err
	}
	oc.ChatModel = endpoint.Model()
	return []passage.Option{passage.WithTextProvider(provider.NewOpenAIProvider(oc))}, nil
}

func chunkingOptions(c config.ChunkingConfig) ([]passage.Option, error) {
	kind, err := domainservice.ParseBreakpointType(c.BreakpointType())
	if err != nil {
		return nil, err
	}
	return []passage.Option{
		passage.WithMinChunkLength(c.MinLength()),
		passage.WithChunking(
			domainservice.WithBreakpoint(kind, c.BreakpointAmount()),
			domainservice.WithBufferSize(c.BufferSize()),
		),
	}, nil
}

// provisionRequest builds the download request for the configured store.
func provisionRequest(cfg config.AppConfig) (provision.Request, bool) {
	store := cfg.Store()
	if store.RemoteURL() == "" {
		return provision.Request{}, false
	}
	return provision.Request{
		LocalPath:      cfg.StorePath(),
		RemoteURL:      store.RemoteURL(),
		BearerToken:    store.Token(),
		ExpectedSHA256: store.SHA256(),
	}, true
}

// newClient creates the passage client for a command.
func newClient(cfg config.AppConfig, logger *slog.Logger, withProvisioning bool) (*passage.Client, error) {
	opts, err := clientOptions(cfg, logger, withProvisioning)
	if err != nil {
		return nil, err
	}
	client, err := passage.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create passage client: %w", err)
	}
	return client, nil
}

// closeClient closes client and logs any error.
func closeClient(client *passage.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close passage client", slog.Any("error", err))
	}
}
